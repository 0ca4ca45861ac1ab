package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

var ErrInvalidArgument = errors.New("data: invalid argument")

// Facade exposes one function per entity operation. Each call issues the
// requests it needs against the Backend and wraps the outcome in a Result.
type Facade struct {
	backend Backend
	log     *logger.CanonicalLogger
	now     func() time.Time
}

func NewFacade(backend Backend, log *logger.CanonicalLogger) *Facade {
	if log == nil {
		log = logger.NewNop()
	}
	return &Facade{backend: backend, log: log.Component("data"), now: time.Now}
}

// Backend returns the underlying query interface.
func (f *Facade) Backend() Backend { return f.backend }

func finish[T any](f *Facade, op string, v T, err error) wrapper.Result[T] {
	if err != nil {
		f.log.Warn("data operation failed",
			logger.String(logger.FieldOperation, op),
			logger.Err(err),
		)
		return wrapper.Fail[T](err)
	}
	return wrapper.Ok(v)
}

func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidArgument, pairs[i])
		}
	}
	return nil
}

func selectAll[T any](ctx context.Context, b Backend, table string, q Query) ([]T, error) {
	var rows []T
	if err := b.Select(ctx, table, q, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func selectOne[T any](ctx context.Context, b Backend, table string, filters ...Filter) (T, error) {
	var zero T
	rows, err := selectAll[T](ctx, b, table, Query{Filters: filters, Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return rows[0], nil
}

func insertOne[T any](ctx context.Context, b Backend, table string, row T) (T, error) {
	var rows []T
	if err := b.Insert(ctx, table, row, &rows); err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func updateOne[T any](ctx context.Context, b Backend, table string, patch map[string]any, filters ...Filter) (T, error) {
	var rows []T
	if err := b.Update(ctx, table, filters, patch, &rows); err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return rows[0], nil
}

// deleteOwned removes row id of userID. A row that does not exist or belongs
// to someone else is ErrNotFound rather than a silent no-op.
func deleteOwned[T any](ctx context.Context, b Backend, table, id, userID string) error {
	filters := []Filter{Eq("id", id), Eq("user_id", userID)}
	if _, err := selectOne[T](ctx, b, table, filters...); err != nil {
		return err
	}
	return b.Delete(ctx, table, filters)
}

func anys(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
