package handler

import (
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) topics(c *fiber.Ctx) error {
	operation(c, "topics")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Topics(c.UserContext(), page(*q)), fiber.StatusOK)
}

func (h *Handler) createTopic(c *fiber.Ctx) error {
	operation(c, "create_topic")
	req := new(dto.CreateTopicRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.CreateTopic(c.UserContext(), models.Topic{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   me(c),
	}), fiber.StatusCreated)
}

func (h *Handler) spaces(c *fiber.Ctx) error {
	operation(c, "spaces")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Spaces(c.UserContext(), page(*q)), fiber.StatusOK)
}

// createSpace godoc
// @Summary      Create a space
// @Description  Creates the space and makes the caller its owner. A failed membership insert is returned as a warning.
// @Tags         community
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateSpaceRequest true "Space"
// @Success      201 {object} wrapper.JSONResult{data=models.Space}
// @Router       /spaces [post]
// @Security     BearerAuth
func (h *Handler) createSpace(c *fiber.Ctx) error {
	operation(c, "create_space")
	req := new(dto.CreateSpaceRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.CreateSpace(c.UserContext(), models.Space{
		Name:        req.Name,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		CreatedBy:   me(c),
	}), fiber.StatusCreated)
}

func (h *Handler) joinSpace(c *fiber.Ctx) error {
	operation(c, "join_space")
	return respond(c, h.Data.JoinSpace(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}

func (h *Handler) leaveSpace(c *fiber.Ctx) error {
	operation(c, "leave_space")
	return respond(c, h.Data.LeaveSpace(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}
