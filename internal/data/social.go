package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const (
	tableFollowers     = "followers"
	tableNotifications = "notifications"
)

// Follow is idempotent.
func (f *Facade) Follow(ctx context.Context, followerID, followingID string) wrapper.Result[bool] {
	if err := required("follower_id", followerID, "following_id", followingID); err != nil {
		return wrapper.Fail[bool](err)
	}
	if followerID == followingID {
		return wrapper.Fail[bool](fmt.Errorf("%w: cannot follow yourself", ErrInvalidArgument))
	}
	_, err := insertOne(ctx, f.backend, tableFollowers, models.Follower{
		FollowerID:  followerID,
		FollowingID: followingID,
	})
	if errors.Is(err, ErrConflict) {
		err = nil
	}
	return finish(f, "follow", err == nil, err)
}

// Unfollow is idempotent: removing an edge that does not exist succeeds.
func (f *Facade) Unfollow(ctx context.Context, followerID, followingID string) wrapper.Result[bool] {
	if err := required("follower_id", followerID, "following_id", followingID); err != nil {
		return wrapper.Fail[bool](err)
	}
	err := f.backend.Delete(ctx, tableFollowers, []Filter{
		Eq("follower_id", followerID),
		Eq("following_id", followingID),
	})
	return finish(f, "unfollow", err == nil, err)
}

// Followers lists the profiles following userID.
func (f *Facade) Followers(ctx context.Context, userID string, page Page) wrapper.Result[[]models.Profile] {
	return f.followEdges(ctx, "followers", userID, page, "following_id", func(e models.Follower) string {
		return e.FollowerID
	})
}

// Following lists the profiles userID follows.
func (f *Facade) Following(ctx context.Context, userID string, page Page) wrapper.Result[[]models.Profile] {
	return f.followEdges(ctx, "following", userID, page, "follower_id", func(e models.Follower) string {
		return e.FollowingID
	})
}

func (f *Facade) followEdges(ctx context.Context, op, userID string, page Page, column string, other func(models.Follower) string) wrapper.Result[[]models.Profile] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[[]models.Profile](err)
	}
	edges, err := selectAll[models.Follower](ctx, f.backend, tableFollowers, newestFirst(page, Eq(column, userID)))
	if err != nil {
		return finish[[]models.Profile](f, op, nil, err)
	}
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = other(e)
	}
	profiles, err := f.profilesByID(ctx, ids)
	return finish(f, op, profiles, err)
}

func (f *Facade) Notifications(ctx context.Context, userID string, page Page) wrapper.Result[[]models.Notification] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[[]models.Notification](err)
	}
	n, err := selectAll[models.Notification](ctx, f.backend, tableNotifications, newestFirst(page, Eq("user_id", userID)))
	return finish(f, "notifications", n, err)
}

// MarkNotificationRead marks one notification, or all of userID's unread
// notifications when id is empty.
func (f *Facade) MarkNotificationRead(ctx context.Context, userID, id string) wrapper.Result[int] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[int](err)
	}
	filters := []Filter{Eq("user_id", userID), Eq("read", false)}
	if id != "" {
		filters = append(filters, Eq("id", id))
	}
	var updated []models.Notification
	err := f.backend.Update(ctx, tableNotifications, filters, map[string]any{"read": true}, &updated)
	return finish(f, "mark_notification_read", len(updated), err)
}
