package local

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/database"
	"github.com/Alwanly/social-hub/pkg/pubsub"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB("", false)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestTables(t *testing.T) (*Tables, *pubsub.Memory) {
	t.Helper()
	bus := pubsub.NewMemory(64)
	t.Cleanup(func() { bus.Close() })
	return NewTables(newTestDB(t), bus, nil), bus
}

func seedUsers(t *testing.T, tables *Tables, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, tables.Insert(context.Background(), "users", models.Profile{ID: id, Username: "user_" + id}, nil))
	}
}

func nextChange(t *testing.T, sub pubsub.Subscription) models.ChangeEvent {
	t.Helper()
	select {
	case msg := <-sub.C():
		var ev models.ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no change published")
	}
	return models.ChangeEvent{}
}

func TestInsertPublishesChange(t *testing.T) {
	ctx := context.Background()
	tables, bus := newTestTables(t)
	sub, err := bus.Subscribe(ctx, models.ChangeTopic("public", "posts"))
	require.NoError(t, err)
	defer sub.Close()

	var out []models.Post
	err = tables.Insert(ctx, "posts", models.Post{UserID: "u1", Content: "hello", ImageURLs: []string{"a.jpg"}}, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].ID)
	require.Equal(t, []string{"a.jpg"}, out[0].ImageURLs)

	ev := nextChange(t, sub)
	require.Equal(t, "INSERT", ev.Event)
	require.Equal(t, "posts", ev.Table)
	require.Equal(t, out[0].ID, ev.New["id"])
	require.Empty(t, ev.Old)
}

func TestSelectFiltersOrdersAndPages(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)
	seedUsers(t, tables, "a", "b")
	for _, title := range []string{"Red Bike", "blue bike", "Lamp"} {
		require.NoError(t, tables.Insert(ctx, "listings", models.Listing{UserID: "a", Title: title, Status: "active"}, nil))
	}

	var bikes []models.Listing
	err := tables.Select(ctx, "listings", data.Query{
		Filters: []data.Filter{data.ILike("title", "*BIKE*")},
		Orders:  []data.Order{{Column: "title", Ascending: true}},
	}, &bikes)
	require.NoError(t, err)
	require.Len(t, bikes, 2)
	require.Equal(t, "Red Bike", bikes[0].Title)

	var page []models.Listing
	err = tables.Select(ctx, "listings", data.Query{
		Orders: []data.Order{{Column: "title", Ascending: true}},
		Limit:  1,
		Offset: 1,
	}, &page)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "Red Bike", page[0].Title)

	var users []models.Profile
	require.NoError(t, tables.Select(ctx, "users", data.Query{
		Filters: []data.Filter{data.In("id", []any{"a", "missing"})},
	}, &users))
	require.Len(t, users, 1)
}

func TestRejectsUnknownTableAndColumn(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)

	err := tables.Select(ctx, "secrets", data.Query{}, nil)
	require.ErrorIs(t, err, data.ErrUnknownTable)

	err = tables.Select(ctx, "posts", data.Query{Filters: []data.Filter{data.Eq("id; DROP TABLE posts", 1)}}, nil)
	require.ErrorIs(t, err, data.ErrInvalidArgument)

	err = tables.RPC(ctx, "drop_everything", nil, nil)
	require.ErrorIs(t, err, data.ErrUnknownProcedure)
}

func TestToggleLikeIsAtomicAndCounts(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)
	var posts []models.Post
	require.NoError(t, tables.Insert(ctx, "posts", models.Post{UserID: "u1", Content: "x"}, &posts))
	postID := posts[0].ID
	params := map[string]any{"p_post_id": postID, "p_user_id": "u2"}

	var first models.LikeToggle
	require.NoError(t, tables.RPC(ctx, "toggle_like", params, &first))
	require.True(t, first.Liked)
	require.Equal(t, 1, first.LikesCount)

	var second models.LikeToggle
	require.NoError(t, tables.RPC(ctx, "toggle_like", params, &second))
	require.False(t, second.Liked)
	require.Equal(t, 0, second.LikesCount)

	var likes []models.Like
	require.NoError(t, tables.Select(ctx, "likes", data.Query{}, &likes))
	require.Empty(t, likes)

	err := tables.RPC(ctx, "toggle_like", map[string]any{"p_post_id": "nope", "p_user_id": "u2"}, nil)
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestDuplicateLikeIsConflict(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)
	like := models.Like{PostID: "p1", UserID: "u1"}
	require.NoError(t, tables.Insert(ctx, "likes", like, nil))
	require.ErrorIs(t, tables.Insert(ctx, "likes", like, nil), data.ErrConflict)
}

func TestFollowerCountersAndDelete(t *testing.T) {
	ctx := context.Background()
	tables, bus := newTestTables(t)
	seedUsers(t, tables, "a", "b")

	sub, err := bus.Subscribe(ctx, models.ChangeTopic("public", "followers"))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, tables.Insert(ctx, "followers", models.Follower{FollowerID: "a", FollowingID: "b"}, nil))
	require.Equal(t, "INSERT", nextChange(t, sub).Event)

	var users []models.Profile
	require.NoError(t, tables.Select(ctx, "users", data.Query{Orders: []data.Order{{Column: "id", Ascending: true}}}, &users))
	require.Equal(t, 1, users[0].FollowingCount)
	require.Equal(t, 1, users[1].FollowersCount)

	require.NoError(t, tables.Delete(ctx, "followers", []data.Filter{data.Eq("follower_id", "a"), data.Eq("following_id", "b")}))
	ev := nextChange(t, sub)
	require.Equal(t, "DELETE", ev.Event)
	require.Equal(t, "a", ev.Old["follower_id"])

	require.NoError(t, tables.Select(ctx, "users", data.Query{Orders: []data.Order{{Column: "id", Ascending: true}}}, &users))
	require.Zero(t, users[0].FollowingCount)
	require.Zero(t, users[1].FollowersCount)
}

func TestUpdateReturnsRowsAndOldValues(t *testing.T) {
	ctx := context.Background()
	tables, bus := newTestTables(t)
	seedUsers(t, tables, "a")
	sub, err := bus.Subscribe(ctx, models.ChangeTopic("public", "users"))
	require.NoError(t, err)
	defer sub.Close()

	var out []models.Profile
	err = tables.Update(ctx, "users", []data.Filter{data.Eq("id", "a")}, map[string]any{"bio": "hi"}, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "hi", out[0].Bio)

	ev := nextChange(t, sub)
	require.Equal(t, "UPDATE", ev.Event)
	require.Equal(t, "hi", ev.New["bio"])
	require.Equal(t, "", ev.Old["bio"])

	out = nil
	require.NoError(t, tables.Update(ctx, "users", []data.Filter{data.Eq("id", "zzz")}, map[string]any{"bio": "x"}, &out))
	require.Empty(t, out)

	require.ErrorIs(t, tables.Update(ctx, "users", nil, map[string]any{"id": "b"}, nil), data.ErrInvalidArgument)
}

func TestDirectChatIsReused(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)

	var first, again models.Chat
	require.NoError(t, tables.RPC(ctx, "get_or_create_direct_chat", map[string]any{"p_user_a": "a", "p_user_b": "b"}, &first))
	require.NotEmpty(t, first.ID)
	require.NoError(t, tables.RPC(ctx, "get_or_create_direct_chat", map[string]any{"p_user_a": "b", "p_user_b": "a"}, &again))
	require.Equal(t, first.ID, again.ID)

	var parts []models.ChatParticipant
	require.NoError(t, tables.Select(ctx, "chat_participants", data.Query{}, &parts))
	require.Len(t, parts, 2)
}

func TestFacadeOverLocalTables(t *testing.T) {
	ctx := context.Background()
	tables, _ := newTestTables(t)
	seedUsers(t, tables, "a", "b")
	f := data.NewFacade(tables, nil)

	chat, err := f.DirectChat(ctx, "a", "b").Unwrap()
	require.NoError(t, err)

	res := f.SendMessage(ctx, models.Message{ChatID: chat.ID, SenderID: "a", Content: "hey"})
	require.NoError(t, res.Err())
	require.Empty(t, res.Warnings())

	chats, err := f.ChatsForUser(ctx, "b").Unwrap()
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "hey", chats[0].LastMessage)

	n, err := f.MarkRead(ctx, chat.ID, "b").Unwrap()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = f.MarkRead(ctx, chat.ID, "b").Unwrap()
	require.NoError(t, err)
	require.Zero(t, n)

	ok, err := f.Follow(ctx, "a", "b").Unwrap()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.Follow(ctx, "a", "b").Unwrap()
	require.NoError(t, err)

	followers, err := f.Followers(ctx, "b", data.Page{}).Unwrap()
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, "a", followers[0].ID)
}
