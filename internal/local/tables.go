// Package local is a self-contained stand-in for the hosted collaborator:
// sqlite tables, password identity and disk storage.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/pubsub"
)

const schemaPublic = "public"

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type tableSpec struct {
	row  func() any
	rows func() any
}

func specFor[T any]() tableSpec {
	return tableSpec{
		row:  func() any { return new(T) },
		rows: func() any { return new([]T) },
	}
}

var registry = map[string]tableSpec{
	"users":             specFor[models.Profile](),
	"posts":             specFor[models.Post](),
	"comments":          specFor[models.Comment](),
	"likes":             specFor[models.Like](),
	"listings":          specFor[models.Listing](),
	"deals":             specFor[models.Deal](),
	"topics":            specFor[models.Topic](),
	"spaces":            specFor[models.Space](),
	"space_members":     specFor[models.SpaceMember](),
	"chats":             specFor[models.Chat](),
	"chat_participants": specFor[models.ChatParticipant](),
	"messages":          specFor[models.Message](),
	"followers":         specFor[models.Follower](),
	"notifications":     specFor[models.Notification](),
}

// counter is a denormalized count kept on target.column for rows of a table
// whose fk column points at target.id.
type counter struct {
	fk     string
	target string
	column string
}

var counters = map[string][]counter{
	"comments":      {{fk: "post_id", target: "posts", column: "comments_count"}},
	"likes":         {{fk: "post_id", target: "posts", column: "likes_count"}},
	"posts":         {{fk: "topic_id", target: "topics", column: "posts_count"}},
	"space_members": {{fk: "space_id", target: "spaces", column: "members_count"}},
	"followers": {
		{fk: "follower_id", target: "users", column: "following_count"},
		{fk: "following_id", target: "users", column: "followers_count"},
	},
}

// Tables implements data.Backend on gorm and publishes every row change on
// the change bus after commit.
type Tables struct {
	db  *gorm.DB
	bus pubsub.Publisher
	log *logger.CanonicalLogger
	now func() time.Time
}

func NewTables(db *gorm.DB, bus pubsub.Publisher, log *logger.CanonicalLogger) *Tables {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tables{db: db, bus: bus, log: log.Component("local_tables"), now: time.Now}
}

func lookup(table string) (tableSpec, error) {
	spec, ok := registry[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %q", data.ErrUnknownTable, table)
	}
	return spec, nil
}

func checkColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return fmt.Errorf("%w: column %q", data.ErrInvalidArgument, column)
	}
	return nil
}

func where(tx *gorm.DB, filters []data.Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if err := checkColumn(f.Column); err != nil {
			return nil, err
		}
		col := f.Column
		switch f.Op {
		case "eq":
			if f.Value == nil {
				tx = tx.Where(col + " IS NULL")
			} else {
				tx = tx.Where(col+" = ?", f.Value)
			}
		case "neq":
			tx = tx.Where(col+" <> ?", f.Value)
		case "gt":
			tx = tx.Where(col+" > ?", f.Value)
		case "lt":
			tx = tx.Where(col+" < ?", f.Value)
		case "in":
			values, _ := f.Value.([]any)
			if len(values) == 0 {
				tx = tx.Where("1 = 0")
			} else {
				tx = tx.Where(col+" IN ?", values)
			}
		case "ilike":
			pattern := strings.ReplaceAll(fmt.Sprint(f.Value), "*", "%")
			tx = tx.Where("LOWER("+col+") LIKE LOWER(?)", pattern)
		case "is":
			if f.Value == nil || f.Value == "null" {
				tx = tx.Where(col + " IS NULL")
			} else {
				tx = tx.Where(col+" = ?", f.Value)
			}
		default:
			return nil, fmt.Errorf("%w: operator %q", data.ErrInvalidArgument, f.Op)
		}
	}
	return tx, nil
}

func (t *Tables) Select(ctx context.Context, table string, q data.Query, out any) error {
	spec, err := lookup(table)
	if err != nil {
		return err
	}
	tx, err := where(t.db.WithContext(ctx).Model(spec.row()), q.Filters)
	if err != nil {
		return err
	}
	for _, o := range q.Orders {
		if err := checkColumn(o.Column); err != nil {
			return err
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: !o.Ascending})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	rows := spec.rows()
	if err := tx.Find(rows).Error; err != nil {
		return mapError(err)
	}
	return transcode(rows, out)
}

func (t *Tables) Insert(ctx context.Context, table string, row any, out any) error {
	spec, err := lookup(table)
	if err != nil {
		return err
	}
	rec := spec.row()
	if err := transcode(row, rec); err != nil {
		return fmt.Errorf("%w: %v", data.ErrInvalidArgument, err)
	}

	var events []models.ChangeEvent
	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		evs, err := t.insertTx(tx, table, rec)
		events = evs
		return err
	})
	if err != nil {
		return mapError(err)
	}
	t.publish(ctx, events)
	return transcode([]any{rec}, out)
}

func (t *Tables) Update(ctx context.Context, table string, filters []data.Filter, patch map[string]any, out any) error {
	spec, err := lookup(table)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", data.ErrInvalidArgument)
	}
	for column := range patch {
		if err := checkColumn(column); err != nil {
			return err
		}
		if column == "id" {
			return fmt.Errorf("%w: id is immutable", data.ErrInvalidArgument)
		}
	}

	var (
		events  []models.ChangeEvent
		updated []map[string]any
	)
	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := matching(tx, spec, filters)
		if err != nil || len(before) == 0 {
			return err
		}
		ids := idsOf(before)
		if err := tx.Model(spec.row()).Where("id IN ?", ids).Updates(patch).Error; err != nil {
			return err
		}
		after := spec.rows()
		if err := tx.Where("id IN ?", ids).Find(after).Error; err != nil {
			return err
		}
		updated, err = toMaps(after)
		if err != nil {
			return err
		}
		old := byID(before)
		for _, row := range updated {
			events = append(events, t.change("UPDATE", table, row, old[fmt.Sprint(row["id"])]))
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	t.publish(ctx, events)
	if updated == nil {
		updated = []map[string]any{}
	}
	return transcode(updated, out)
}

func (t *Tables) Delete(ctx context.Context, table string, filters []data.Filter) error {
	if _, err := lookup(table); err != nil {
		return err
	}
	var events []models.ChangeEvent
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		evs, err := t.deleteTx(tx, table, filters)
		events = evs
		return err
	})
	if err != nil {
		return mapError(err)
	}
	t.publish(ctx, events)
	return nil
}

func (t *Tables) insertTx(tx *gorm.DB, table string, rec any) ([]models.ChangeEvent, error) {
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}
	row, err := toMap(rec)
	if err != nil {
		return nil, err
	}
	events := []models.ChangeEvent{t.change("INSERT", table, row, nil)}
	bumped, err := t.bumpAll(tx, table, row, 1)
	return append(events, bumped...), err
}

func (t *Tables) deleteTx(tx *gorm.DB, table string, filters []data.Filter) ([]models.ChangeEvent, error) {
	spec := registry[table]
	before, err := matching(tx, spec, filters)
	if err != nil || len(before) == 0 {
		return nil, err
	}
	if err := tx.Where("id IN ?", idsOf(before)).Delete(spec.row()).Error; err != nil {
		return nil, err
	}
	var events []models.ChangeEvent
	for _, row := range before {
		events = append(events, t.change("DELETE", table, nil, row))
		bumped, err := t.bumpAll(tx, table, row, -1)
		if err != nil {
			return nil, err
		}
		events = append(events, bumped...)
	}
	return events, nil
}

func (t *Tables) bumpAll(tx *gorm.DB, table string, row map[string]any, delta int) ([]models.ChangeEvent, error) {
	var events []models.ChangeEvent
	for _, c := range counters[table] {
		id, _ := row[c.fk].(string)
		if id == "" {
			continue
		}
		spec := registry[c.target]
		before := spec.row()
		if err := tx.Where("id = ?", id).Take(before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		expr := gorm.Expr("MAX("+c.column+" + ?, 0)", delta)
		if err := tx.Model(spec.row()).Where("id = ?", id).UpdateColumn(c.column, expr).Error; err != nil {
			return nil, err
		}
		after := spec.row()
		if err := tx.Where("id = ?", id).Take(after).Error; err != nil {
			return nil, err
		}
		oldRow, err := toMap(before)
		if err != nil {
			return nil, err
		}
		newRow, err := toMap(after)
		if err != nil {
			return nil, err
		}
		events = append(events, t.change("UPDATE", c.target, newRow, oldRow))
	}
	return events, nil
}

func matching(tx *gorm.DB, spec tableSpec, filters []data.Filter) ([]map[string]any, error) {
	q, err := where(tx.Model(spec.row()), filters)
	if err != nil {
		return nil, err
	}
	rows := spec.rows()
	if err := q.Find(rows).Error; err != nil {
		return nil, err
	}
	return toMaps(rows)
}

func (t *Tables) change(kind, table string, newRow, oldRow map[string]any) models.ChangeEvent {
	if newRow == nil {
		newRow = map[string]any{}
	}
	if oldRow == nil {
		oldRow = map[string]any{}
	}
	return models.ChangeEvent{
		Event:           kind,
		Schema:          schemaPublic,
		Table:           table,
		New:             newRow,
		Old:             oldRow,
		CommitTimestamp: t.now().UTC(),
	}
}

// publish fans committed changes out. A failed publish is logged; the write
// already happened.
func (t *Tables) publish(ctx context.Context, events []models.ChangeEvent) {
	if t.bus == nil {
		return
	}
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			t.log.Error("encode change", logger.String(logger.FieldTable, ev.Table), logger.Err(err))
			continue
		}
		if err := t.bus.Publish(ctx, models.ChangeTopic(ev.Schema, ev.Table), string(raw)); err != nil {
			t.log.Error("publish change",
				logger.String(logger.FieldTable, ev.Table),
				logger.String(logger.FieldEventKind, ev.Event),
				logger.Err(err),
			)
		}
	}
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", data.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", data.ErrConflict, err)
	}
	return err
}

func transcode(src, dst any) error {
	if dst == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func toMap(v any) (map[string]any, error) {
	m := map[string]any{}
	return m, transcode(v, &m)
}

func toMaps(v any) ([]map[string]any, error) {
	var out []map[string]any
	return out, transcode(v, &out)
}

func idsOf(rows []map[string]any) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, fmt.Sprint(r["id"]))
	}
	return ids
}

func byID(rows []map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(rows))
	for _, r := range rows {
		out[fmt.Sprint(r["id"])] = r
	}
	return out
}
