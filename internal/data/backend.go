// Package data wraps one collaborator request per entity operation.
package data

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("data: not found")
	ErrConflict         = errors.New("data: conflict")
	ErrForbidden        = errors.New("data: forbidden")
	ErrUnknownTable     = errors.New("data: unknown table")
	ErrUnknownProcedure = errors.New("data: unknown procedure")
)

// Filter is one column predicate. Op is a PostgREST operator: eq, neq, gt,
// lt, in, ilike or is.
type Filter struct {
	Column string
	Op     string
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: "eq", Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: "neq", Value: value} }
func Gt(column string, value any) Filter  { return Filter{Column: column, Op: "gt", Value: value} }
func Lt(column string, value any) Filter  { return Filter{Column: column, Op: "lt", Value: value} }
func In(column string, values []any) Filter {
	return Filter{Column: column, Op: "in", Value: values}
}

// ILike matches pattern case-insensitively; * is the wildcard.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: "ilike", Value: pattern}
}

// IsNull matches rows where column is null.
func IsNull(column string) Filter { return Filter{Column: column, Op: "is", Value: nil} }

type Order struct {
	Column    string
	Ascending bool
}

type Query struct {
	Filters []Filter
	Orders  []Order
	Limit   int
	Offset  int
}

// Backend is the query interface of the database collaborator. out is a
// pointer to a slice the returned rows are decoded into; it may be nil.
type Backend interface {
	Select(ctx context.Context, table string, q Query, out any) error
	Insert(ctx context.Context, table string, row any, out any) error
	Update(ctx context.Context, table string, filters []Filter, patch map[string]any, out any) error
	Delete(ctx context.Context, table string, filters []Filter) error
	RPC(ctx context.Context, fn string, params map[string]any, out any) error
}

// Page bounds a list query.
type Page struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func newestFirst(p Page, filters ...Filter) Query {
	p = p.normalize()
	return Query{
		Filters: filters,
		Orders:  []Order{{Column: "created_at", Ascending: false}},
		Limit:   p.Limit,
		Offset:  p.Offset,
	}
}
