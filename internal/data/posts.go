package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const (
	tablePosts    = "posts"
	tableComments = "comments"
	tableLikes    = "likes"

	procToggleLike = "toggle_like"
)

// FeedQuery narrows the feed to a topic or a space.
type FeedQuery struct {
	TopicID string
	SpaceID string
	Page
}

func (f *Facade) Feed(ctx context.Context, q FeedQuery) wrapper.Result[[]models.Post] {
	var filters []Filter
	if q.TopicID != "" {
		filters = append(filters, Eq("topic_id", q.TopicID))
	}
	if q.SpaceID != "" {
		filters = append(filters, Eq("space_id", q.SpaceID))
	}
	posts, err := selectAll[models.Post](ctx, f.backend, tablePosts, newestFirst(q.Page, filters...))
	return finish(f, "feed", posts, err)
}

func (f *Facade) PostsByUser(ctx context.Context, userID string, page Page) wrapper.Result[[]models.Post] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[[]models.Post](err)
	}
	posts, err := selectAll[models.Post](ctx, f.backend, tablePosts, newestFirst(page, Eq("user_id", userID)))
	return finish(f, "posts_by_user", posts, err)
}

func (f *Facade) GetPost(ctx context.Context, id string) wrapper.Result[models.Post] {
	if err := required("id", id); err != nil {
		return wrapper.Fail[models.Post](err)
	}
	p, err := selectOne[models.Post](ctx, f.backend, tablePosts, Eq("id", id))
	return finish(f, "get_post", p, err)
}

// CreatePost requires text or at least one image.
func (f *Facade) CreatePost(ctx context.Context, p models.Post) wrapper.Result[models.Post] {
	if err := required("user_id", p.UserID); err != nil {
		return wrapper.Fail[models.Post](err)
	}
	if strings.TrimSpace(p.Content) == "" && len(p.ImageURLs) == 0 {
		return wrapper.Fail[models.Post](fmt.Errorf("%w: post needs content or images", ErrInvalidArgument))
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	created, err := insertOne(ctx, f.backend, tablePosts, p)
	return finish(f, "create_post", created, err)
}

// DeletePost removes a post owned by userID.
func (f *Facade) DeletePost(ctx context.Context, id, userID string) wrapper.Result[bool] {
	if err := required("id", id, "user_id", userID); err != nil {
		return wrapper.Fail[bool](err)
	}
	err := deleteOwned[models.Post](ctx, f.backend, tablePosts, id, userID)
	return finish(f, "delete_post", err == nil, err)
}

func (f *Facade) Comments(ctx context.Context, postID string, page Page) wrapper.Result[[]models.Comment] {
	if err := required("post_id", postID); err != nil {
		return wrapper.Fail[[]models.Comment](err)
	}
	page = page.normalize()
	comments, err := selectAll[models.Comment](ctx, f.backend, tableComments, Query{
		Filters: []Filter{Eq("post_id", postID)},
		Orders:  []Order{{Column: "created_at", Ascending: true}},
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	return finish(f, "comments", comments, err)
}

func (f *Facade) AddComment(ctx context.Context, postID, userID, content string) wrapper.Result[models.Comment] {
	content = strings.TrimSpace(content)
	if err := required("post_id", postID, "user_id", userID, "content", content); err != nil {
		return wrapper.Fail[models.Comment](err)
	}
	c, err := insertOne(ctx, f.backend, tableComments, models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	})
	return finish(f, "add_comment", c, err)
}

func (f *Facade) DeleteComment(ctx context.Context, id, userID string) wrapper.Result[bool] {
	if err := required("id", id, "user_id", userID); err != nil {
		return wrapper.Fail[bool](err)
	}
	err := deleteOwned[models.Comment](ctx, f.backend, tableComments, id, userID)
	return finish(f, "delete_comment", err == nil, err)
}

// ToggleLike flips the like of userID on postID in one server-side call and
// returns the resulting state and count.
func (f *Facade) ToggleLike(ctx context.Context, postID, userID string) wrapper.Result[models.LikeToggle] {
	if err := required("post_id", postID, "user_id", userID); err != nil {
		return wrapper.Fail[models.LikeToggle](err)
	}
	var out models.LikeToggle
	err := f.backend.RPC(ctx, procToggleLike, map[string]any{
		"p_post_id": postID,
		"p_user_id": userID,
	}, &out)
	return finish(f, "toggle_like", out, err)
}

func (f *Facade) LikeCount(ctx context.Context, postID string) wrapper.Result[int] {
	if err := required("post_id", postID); err != nil {
		return wrapper.Fail[int](err)
	}
	p, err := selectOne[models.Post](ctx, f.backend, tablePosts, Eq("id", postID))
	return finish(f, "like_count", p.LikesCount, err)
}

func (f *Facade) HasLiked(ctx context.Context, postID, userID string) wrapper.Result[bool] {
	if err := required("post_id", postID, "user_id", userID); err != nil {
		return wrapper.Fail[bool](err)
	}
	likes, err := selectAll[models.Like](ctx, f.backend, tableLikes, Query{
		Filters: []Filter{Eq("post_id", postID), Eq("user_id", userID)},
		Limit:   1,
	})
	return finish(f, "has_liked", len(likes) > 0, err)
}

// LikedBy lists the profiles that liked postID.
func (f *Facade) LikedBy(ctx context.Context, postID string, page Page) wrapper.Result[[]models.Profile] {
	if err := required("post_id", postID); err != nil {
		return wrapper.Fail[[]models.Profile](err)
	}
	likes, err := selectAll[models.Like](ctx, f.backend, tableLikes, newestFirst(page, Eq("post_id", postID)))
	if err != nil {
		return finish[[]models.Profile](f, "liked_by", nil, err)
	}
	ids := make([]string, len(likes))
	for i, l := range likes {
		ids[i] = l.UserID
	}
	profiles, err := f.profilesByID(ctx, ids)
	return finish(f, "liked_by", profiles, err)
}
