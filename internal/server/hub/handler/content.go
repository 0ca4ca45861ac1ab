package handler

import (
	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) getUser(c *fiber.Ctx) error {
	operation(c, "get_user")
	return respond(c, h.Data.GetUser(c.UserContext(), c.Params("id")), fiber.StatusOK)
}

// searchUsers godoc
// @Summary      Search users by username or name
// @Tags         users
// @Produce      json
// @Param        q query string true "Search term"
// @Success      200 {object} wrapper.JSONResult{data=[]models.Profile}
// @Router       /users/search [get]
// @Security     BearerAuth
func (h *Handler) searchUsers(c *fiber.Ctx) error {
	operation(c, "search_users")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.SearchUsers(c.UserContext(), c.Query("q"), page(*q)), fiber.StatusOK)
}

func (h *Handler) postsByUser(c *fiber.Ctx) error {
	operation(c, "posts_by_user")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.PostsByUser(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

func (h *Handler) followers(c *fiber.Ctx) error {
	operation(c, "followers")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Followers(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

func (h *Handler) following(c *fiber.Ctx) error {
	operation(c, "following")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Following(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

func (h *Handler) follow(c *fiber.Ctx) error {
	operation(c, "follow")
	return respond(c, h.Data.Follow(c.UserContext(), me(c), c.Params("id")), fiber.StatusOK)
}

func (h *Handler) unfollow(c *fiber.Ctx) error {
	operation(c, "unfollow")
	return respond(c, h.Data.Unfollow(c.UserContext(), me(c), c.Params("id")), fiber.StatusOK)
}

// feed godoc
// @Summary      Post feed, newest first
// @Tags         posts
// @Produce      json
// @Param        topic_id query string false "Topic"
// @Param        space_id query string false "Space"
// @Param        limit query int false "Page size"
// @Param        offset query int false "Offset"
// @Success      200 {object} wrapper.JSONResult{data=[]models.Post}
// @Router       /posts [get]
// @Security     BearerAuth
func (h *Handler) feed(c *fiber.Ctx) error {
	operation(c, "feed")
	q := new(dto.FeedQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Feed(c.UserContext(), data.FeedQuery{
		TopicID: q.TopicID,
		SpaceID: q.SpaceID,
		Page:    page(q.PageQuery),
	}), fiber.StatusOK)
}

// createPost godoc
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        request body dto.CreatePostRequest true "Post"
// @Success      201 {object} wrapper.JSONResult{data=models.Post}
// @Router       /posts [post]
// @Security     BearerAuth
func (h *Handler) createPost(c *fiber.Ctx) error {
	operation(c, "create_post")
	req := new(dto.CreatePostRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.CreatePost(c.UserContext(), models.Post{
		UserID:    me(c),
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
		TopicID:   req.TopicID,
		SpaceID:   req.SpaceID,
	}), fiber.StatusCreated)
}

func (h *Handler) getPost(c *fiber.Ctx) error {
	operation(c, "get_post")
	return respond(c, h.Data.GetPost(c.UserContext(), c.Params("id")), fiber.StatusOK)
}

func (h *Handler) deletePost(c *fiber.Ctx) error {
	operation(c, "delete_post")
	return respond(c, h.Data.DeletePost(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}

func (h *Handler) comments(c *fiber.Ctx) error {
	operation(c, "comments")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Comments(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

func (h *Handler) addComment(c *fiber.Ctx) error {
	operation(c, "add_comment")
	req := new(dto.CommentRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.AddComment(c.UserContext(), c.Params("id"), me(c), req.Content), fiber.StatusCreated)
}

func (h *Handler) deleteComment(c *fiber.Ctx) error {
	operation(c, "delete_comment")
	return respond(c, h.Data.DeleteComment(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}

// toggleLike godoc
// @Summary      Like or unlike a post
// @Description  Flips the caller's like atomically and returns the new state and count.
// @Tags         posts
// @Produce      json
// @Param        id path string true "Post id"
// @Success      200 {object} wrapper.JSONResult{data=models.LikeToggle}
// @Router       /posts/{id}/like [post]
// @Security     BearerAuth
func (h *Handler) toggleLike(c *fiber.Ctx) error {
	operation(c, "toggle_like")
	return respond(c, h.Data.ToggleLike(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}

func (h *Handler) likes(c *fiber.Ctx) error {
	operation(c, "likes")
	if c.QueryBool("mine") {
		return respond(c, h.Data.HasLiked(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
	}
	if c.QueryBool("count") {
		res := h.Data.LikeCount(c.UserContext(), c.Params("id"))
		return respond(c, wrapper.Map(res, func(n int) dto.CountResponse { return dto.CountResponse{Count: n} }), fiber.StatusOK)
	}
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.LikedBy(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

func (h *Handler) notifications(c *fiber.Ctx) error {
	operation(c, "notifications")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Notifications(c.UserContext(), me(c), page(*q)), fiber.StatusOK)
}

func (h *Handler) markNotificationsRead(c *fiber.Ctx) error {
	operation(c, "mark_notifications_read")
	req := new(dto.MarkNotificationsRequest)
	if len(c.Body()) > 0 {
		if ok, err := bind(c, req); !ok {
			return err
		}
	}
	res := h.Data.MarkNotificationRead(c.UserContext(), me(c), req.ID)
	return respond(c, wrapper.Map(res, func(n int) dto.CountResponse { return dto.CountResponse{Count: n} }), fiber.StatusOK)
}
