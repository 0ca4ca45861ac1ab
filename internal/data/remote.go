package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/social-hub/pkg/supabase"
)

// TokenFunc returns the access token requests run under. An error means
// anonymous access.
type TokenFunc func() (string, error)

// RemoteBackend runs queries against the hosted PostgREST API.
type RemoteBackend struct {
	client *supabase.Client
	token  TokenFunc
}

func NewRemoteBackend(client *supabase.Client, token TokenFunc) *RemoteBackend {
	return &RemoteBackend{client: client, token: token}
}

func (r *RemoteBackend) authed() *supabase.Client {
	if r.token == nil {
		return r.client
	}
	tok, err := r.token()
	if err != nil || tok == "" {
		return r.client
	}
	return r.client.WithToken(tok)
}

func applyFilters(q *supabase.QueryBuilder, filters []Filter) {
	for _, f := range filters {
		switch f.Op {
		case "in":
			values, _ := f.Value.([]any)
			q.In(f.Column, values)
		case "is":
			if f.Value == nil {
				q.Is(f.Column, "null")
			} else {
				q.Is(f.Column, f.Value)
			}
		default:
			q.Filter(f.Column, f.Op, filterValue(f.Value))
		}
	}
}

func filterValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (r *RemoteBackend) Select(ctx context.Context, table string, q Query, out any) error {
	qb := r.authed().From(table).Select("*")
	applyFilters(qb, q.Filters)
	for _, o := range q.Orders {
		qb.Order(o.Column, o.Ascending)
	}
	if q.Limit > 0 {
		qb.Limit(q.Limit)
	}
	if q.Offset > 0 {
		qb.Offset(q.Offset)
	}

	resp, err := qb.Execute(ctx)
	if err != nil {
		return mapRemoteError(err)
	}
	return decode(resp, out)
}

func (r *RemoteBackend) Insert(ctx context.Context, table string, row any, out any) error {
	resp, err := r.authed().From(table).ExecuteInsert(ctx, row)
	if err != nil {
		return mapRemoteError(err)
	}
	return decode(resp, out)
}

func (r *RemoteBackend) Update(ctx context.Context, table string, filters []Filter, patch map[string]any, out any) error {
	qb := r.authed().From(table)
	applyFilters(qb, filters)
	resp, err := qb.ExecuteUpdate(ctx, patch)
	if err != nil {
		return mapRemoteError(err)
	}
	return decode(resp, out)
}

func (r *RemoteBackend) Delete(ctx context.Context, table string, filters []Filter) error {
	qb := r.authed().From(table)
	applyFilters(qb, filters)
	_, err := qb.ExecuteDelete(ctx)
	return mapRemoteError(err)
}

func (r *RemoteBackend) RPC(ctx context.Context, fn string, params map[string]any, out any) error {
	resp, err := r.authed().RPC(ctx, fn, params)
	if err != nil {
		return mapRemoteError(err)
	}
	return decode(resp, out)
}

func decode(resp *supabase.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

func mapRemoteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, supabase.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, supabase.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, supabase.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}
