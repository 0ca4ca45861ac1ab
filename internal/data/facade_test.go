package data

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Alwanly/social-hub/internal/models"
)

type call struct {
	op      string
	table   string
	query   Query
	filters []Filter
	row     any
	patch   map[string]any
	params  map[string]any
}

// scriptedBackend records every call and answers from per-table fixtures.
type scriptedBackend struct {
	calls   []call
	rows    map[string]any
	errs    map[string]error
	rpcOut  any
	created any
}

func newScripted() *scriptedBackend {
	return &scriptedBackend{rows: map[string]any{}, errs: map[string]error{}}
}

func fill(src, out any) error {
	if out == nil || src == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *scriptedBackend) Select(_ context.Context, table string, q Query, out any) error {
	s.calls = append(s.calls, call{op: "select", table: table, query: q})
	if err := s.errs["select:"+table]; err != nil {
		return err
	}
	return fill(s.rows[table], out)
}

func (s *scriptedBackend) Insert(_ context.Context, table string, row any, out any) error {
	s.calls = append(s.calls, call{op: "insert", table: table, row: row})
	if err := s.errs["insert:"+table]; err != nil {
		return err
	}
	if s.created != nil {
		return fill([]any{s.created}, out)
	}
	return fill([]any{row}, out)
}

func (s *scriptedBackend) Update(_ context.Context, table string, filters []Filter, patch map[string]any, out any) error {
	s.calls = append(s.calls, call{op: "update", table: table, filters: filters, patch: patch})
	if err := s.errs["update:"+table]; err != nil {
		return err
	}
	return fill(s.rows[table], out)
}

func (s *scriptedBackend) Delete(_ context.Context, table string, filters []Filter) error {
	s.calls = append(s.calls, call{op: "delete", table: table, filters: filters})
	return s.errs["delete:"+table]
}

func (s *scriptedBackend) RPC(_ context.Context, fn string, params map[string]any, out any) error {
	s.calls = append(s.calls, call{op: "rpc", table: fn, params: params})
	if err := s.errs["rpc:"+fn]; err != nil {
		return err
	}
	return fill(s.rpcOut, out)
}

func hasFilter(filters []Filter, want Filter) bool {
	for _, f := range filters {
		if f.Column == want.Column && f.Op == want.Op && f.Value == want.Value {
			return true
		}
	}
	return false
}

func TestFeedOrdersNewestFirstWithDefaultPage(t *testing.T) {
	b := newScripted()
	b.rows[tablePosts] = []models.Post{{Base: models.Base{ID: "p1"}, Content: "hi"}}
	f := NewFacade(b, nil)

	posts, err := f.Feed(context.Background(), FeedQuery{TopicID: "t1"}).Unwrap()
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("posts = %+v", posts)
	}
	q := b.calls[0].query
	if q.Limit != defaultPageSize || q.Orders[0].Column != "created_at" || q.Orders[0].Ascending {
		t.Fatalf("query shape = %+v", q)
	}
	if !hasFilter(q.Filters, Eq("topic_id", "t1")) {
		t.Fatalf("missing topic filter: %+v", q.Filters)
	}
}

func TestEmptySelectReturnsEmptySlice(t *testing.T) {
	f := NewFacade(newScripted(), nil)
	posts, err := f.PostsByUser(context.Background(), "u1", Page{Limit: 500}).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", posts)
	}
}

func TestCreatePostRejectsEmpty(t *testing.T) {
	b := newScripted()
	f := NewFacade(b, nil)
	err := f.CreatePost(context.Background(), models.Post{UserID: "u1"}).Err()
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if len(b.calls) != 0 {
		t.Fatalf("backend called on invalid input: %+v", b.calls)
	}
}

func TestGetUserNotFound(t *testing.T) {
	f := NewFacade(newScripted(), nil)
	if err := f.GetUser(context.Background(), "nobody").Err(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteCommentOfSomeoneElseIsNotFound(t *testing.T) {
	b := newScripted()
	f := NewFacade(b, nil)

	if err := f.DeleteComment(context.Background(), "c1", "intruder").Err(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	for _, c := range b.calls {
		if c.op == "delete" {
			t.Fatalf("nothing should be deleted, calls = %+v", b.calls)
		}
	}

	b.rows[tableComments] = []models.Comment{{Base: models.Base{ID: "c1"}, UserID: "u1"}}
	ok, err := f.DeleteComment(context.Background(), "c1", "u1").Unwrap()
	if err != nil || !ok {
		t.Fatalf("DeleteComment = %v, %v", ok, err)
	}
	last := b.calls[len(b.calls)-1]
	if last.op != "delete" || !hasFilter(last.filters, Eq("id", "c1")) || !hasFilter(last.filters, Eq("user_id", "u1")) {
		t.Fatalf("calls = %+v", b.calls)
	}
}

func TestToggleLikeUsesOneProcedureCall(t *testing.T) {
	b := newScripted()
	b.rpcOut = models.LikeToggle{Liked: true, LikesCount: 3}
	f := NewFacade(b, nil)

	out, err := f.ToggleLike(context.Background(), "p1", "u1").Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if !out.Liked || out.LikesCount != 3 {
		t.Fatalf("toggle = %+v", out)
	}
	if len(b.calls) != 1 || b.calls[0].op != "rpc" || b.calls[0].table != procToggleLike {
		t.Fatalf("calls = %+v", b.calls)
	}
	if b.calls[0].params["p_post_id"] != "p1" || b.calls[0].params["p_user_id"] != "u1" {
		t.Fatalf("params = %+v", b.calls[0].params)
	}
}

func TestFollowIsIdempotentOnConflict(t *testing.T) {
	b := newScripted()
	b.errs["insert:"+tableFollowers] = ErrConflict
	f := NewFacade(b, nil)
	ok, err := f.Follow(context.Background(), "a", "b").Unwrap()
	if err != nil || !ok {
		t.Fatalf("Follow = %v, %v", ok, err)
	}
	if err := f.Follow(context.Background(), "a", "a").Err(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("self follow err = %v", err)
	}
}

func TestSendMessageWarnsWhenPreviewFails(t *testing.T) {
	b := newScripted()
	b.errs["update:"+tableChats] = errors.New("boom")
	f := NewFacade(b, nil)

	res := f.SendMessage(context.Background(), models.Message{ChatID: "c1", SenderID: "u1", Content: "hello"})
	if !res.IsOK() {
		t.Fatalf("send failed: %v", res.Err())
	}
	if len(res.Warnings()) != 1 {
		t.Fatalf("warnings = %v", res.Warnings())
	}
	last := b.calls[len(b.calls)-1]
	if last.table != tableChats || last.patch["last_message"] != "hello" {
		t.Fatalf("preview update = %+v", last)
	}
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	b := newScripted()
	b.rows[tableMessages] = []models.Message{{ChatID: "c1"}, {ChatID: "c1"}}
	f := NewFacade(b, nil)

	n, err := f.MarkRead(context.Background(), "c1", "u1").Unwrap()
	if err != nil || n != 2 {
		t.Fatalf("MarkRead = %d, %v", n, err)
	}
	filters := b.calls[0].filters
	if !hasFilter(filters, Neq("sender_id", "u1")) || !hasFilter(filters, IsNull("read_at")) {
		t.Fatalf("filters = %+v", filters)
	}
}

func TestDealsDropExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	b := newScripted()
	b.rows[tableDeals] = []models.Deal{
		{Title: "old", ExpiresAt: &past},
		{Title: "open"},
		{Title: "soon", ExpiresAt: &future},
	}
	f := NewFacade(b, nil)
	f.now = func() time.Time { return now }

	deals, err := f.Deals(context.Background(), Page{}).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if len(deals) != 2 || deals[0].Title != "open" || deals[1].Title != "soon" {
		t.Fatalf("deals = %+v", deals)
	}
}

func TestChatsForUserWithoutParticipationSkipsChatQuery(t *testing.T) {
	b := newScripted()
	f := NewFacade(b, nil)
	chats, err := f.ChatsForUser(context.Background(), "u1").Unwrap()
	if err != nil || len(chats) != 0 {
		t.Fatalf("ChatsForUser = %v, %v", chats, err)
	}
	if len(b.calls) != 1 {
		t.Fatalf("calls = %+v", b.calls)
	}
}

func TestCreateSpaceWarnsWhenMembershipFails(t *testing.T) {
	b := newScripted()
	b.errs["insert:"+tableSpaceMembers] = errors.New("rls")
	f := NewFacade(b, nil)
	res := f.CreateSpace(context.Background(), models.Space{Name: " Gardening ", CreatedBy: "u1"})
	s, err := res.Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Gardening" || len(res.Warnings()) != 1 {
		t.Fatalf("space = %+v warnings = %v", s, res.Warnings())
	}
}
