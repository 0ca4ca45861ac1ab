package handler

import (
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) chats(c *fiber.Ctx) error {
	operation(c, "chats")
	return respond(c, h.Data.ChatsForUser(c.UserContext(), me(c)), fiber.StatusOK)
}

// directChat godoc
// @Summary      Open the one-to-one chat with a user
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body dto.DirectChatRequest true "Other user"
// @Success      200 {object} wrapper.JSONResult{data=models.Chat}
// @Router       /chats/direct [post]
// @Security     BearerAuth
func (h *Handler) directChat(c *fiber.Ctx) error {
	operation(c, "direct_chat")
	req := new(dto.DirectChatRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.DirectChat(c.UserContext(), me(c), req.UserID), fiber.StatusOK)
}

func (h *Handler) messages(c *fiber.Ctx) error {
	operation(c, "messages")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Messages(c.UserContext(), c.Params("id"), page(*q)), fiber.StatusOK)
}

// sendMessage godoc
// @Summary      Send a chat message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id path string true "Chat id"
// @Param        request body dto.SendMessageRequest true "Message"
// @Success      201 {object} wrapper.JSONResult{data=models.Message}
// @Router       /chats/{id}/messages [post]
// @Security     BearerAuth
func (h *Handler) sendMessage(c *fiber.Ctx) error {
	operation(c, "send_message")
	req := new(dto.SendMessageRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.SendMessage(c.UserContext(), models.Message{
		ChatID:   c.Params("id"),
		SenderID: me(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	}), fiber.StatusCreated)
}

func (h *Handler) markRead(c *fiber.Ctx) error {
	operation(c, "mark_read")
	res := h.Data.MarkRead(c.UserContext(), c.Params("id"), me(c))
	return respond(c, wrapper.Map(res, func(n int) dto.CountResponse { return dto.CountResponse{Count: n} }), fiber.StatusOK)
}
