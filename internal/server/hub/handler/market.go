package handler

import (
	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/gofiber/fiber/v2"
)

// listings godoc
// @Summary      Active marketplace listings
// @Tags         market
// @Produce      json
// @Param        category query string false "Category"
// @Param        q query string false "Title search"
// @Success      200 {object} wrapper.JSONResult{data=[]models.Listing}
// @Router       /listings [get]
// @Security     BearerAuth
func (h *Handler) listings(c *fiber.Ctx) error {
	operation(c, "listings")
	q := new(dto.ListingQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Listings(c.UserContext(), data.ListingQuery{
		Category: q.Category,
		Search:   q.Search,
		Page:     page(q.PageQuery),
	}), fiber.StatusOK)
}

// createListing godoc
// @Summary      Create a listing
// @Tags         market
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateListingRequest true "Listing"
// @Success      201 {object} wrapper.JSONResult{data=models.Listing}
// @Router       /listings [post]
// @Security     BearerAuth
func (h *Handler) createListing(c *fiber.Ctx) error {
	operation(c, "create_listing")
	req := new(dto.CreateListingRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.CreateListing(c.UserContext(), models.Listing{
		UserID:      me(c),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
		ImageURLs:   req.ImageURLs,
	}), fiber.StatusCreated)
}

func (h *Handler) getListing(c *fiber.Ctx) error {
	operation(c, "get_listing")
	return respond(c, h.Data.GetListing(c.UserContext(), c.Params("id")), fiber.StatusOK)
}

func (h *Handler) deleteListing(c *fiber.Ctx) error {
	operation(c, "delete_listing")
	return respond(c, h.Data.DeleteListing(c.UserContext(), c.Params("id"), me(c)), fiber.StatusOK)
}

func (h *Handler) deals(c *fiber.Ctx) error {
	operation(c, "deals")
	q := new(dto.PageQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	return respond(c, h.Data.Deals(c.UserContext(), page(*q)), fiber.StatusOK)
}

func (h *Handler) createDeal(c *fiber.Ctx) error {
	operation(c, "create_deal")
	req := new(dto.CreateDealRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Data.CreateDeal(c.UserContext(), models.Deal{
		UserID:          me(c),
		ListingID:       req.ListingID,
		Title:           req.Title,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		ImageURL:        req.ImageURL,
		ExpiresAt:       req.ExpiresAt,
	}), fiber.StatusCreated)
}
