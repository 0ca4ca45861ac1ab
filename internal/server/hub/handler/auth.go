package handler

import (
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/internal/session"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
)

func toSessionResponse(s *session.Session) dto.SessionResponse {
	if !s.Active() {
		return dto.SessionResponse{}
	}
	exp := s.ExpiresAt
	return dto.SessionResponse{
		SignedIn:    true,
		AccessToken: s.AccessToken,
		ExpiresAt:   &exp,
		UserID:      s.User.ID,
		Email:       s.User.Email,
		Metadata:    s.User.Metadata,
	}
}

// signUp godoc
// @Summary      Create an account
// @Description  Creates the identity account and its profile row. A failed profile insert is returned as a warning.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignUpRequest true "Account"
// @Success      201 {object} wrapper.JSONResult{data=dto.SessionResponse}
// @Failure      400 {object} wrapper.JSONResult
// @Failure      409 {object} wrapper.JSONResult
// @Router       /auth/signup [post]
func (h *Handler) signUp(c *fiber.Ctx) error {
	operation(c, "sign_up")

	req := new(dto.SignUpRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}

	res := h.Session.SignUp(c.UserContext(), session.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
	})
	return respond(c, wrapper.Map(res, toSessionResponse), fiber.StatusCreated)
}

// signIn godoc
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignInRequest true "Credentials"
// @Success      200 {object} wrapper.JSONResult{data=dto.SessionResponse}
// @Failure      401 {object} wrapper.JSONResult
// @Router       /auth/signin [post]
func (h *Handler) signIn(c *fiber.Ctx) error {
	operation(c, "sign_in")

	req := new(dto.SignInRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}

	res := h.Session.SignIn(c.UserContext(), req.Email, req.Password)
	return respond(c, wrapper.Map(res, toSessionResponse), fiber.StatusOK)
}

// signOut godoc
// @Summary      Sign out
// @Description  Clears the session and tears down every realtime subscription.
// @Tags         auth
// @Produce      json
// @Success      200 {object} wrapper.JSONResult
// @Router       /auth/signout [post]
// @Security     BearerAuth
func (h *Handler) signOut(c *fiber.Ctx) error {
	operation(c, "sign_out")
	return respond(c, h.Session.SignOut(c.UserContext()), fiber.StatusOK)
}

// resetPassword godoc
// @Summary      Request a password reset mail
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.ResetPasswordRequest true "Email"
// @Success      200 {object} wrapper.JSONResult
// @Router       /auth/reset-password [post]
func (h *Handler) resetPassword(c *fiber.Ctx) error {
	operation(c, "reset_password")

	req := new(dto.ResetPasswordRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Session.ResetPassword(c.UserContext(), req.Email), fiber.StatusOK)
}

// updatePassword godoc
// @Summary      Change the password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdatePasswordRequest true "New password"
// @Success      200 {object} wrapper.JSONResult
// @Router       /auth/password [put]
// @Security     BearerAuth
func (h *Handler) updatePassword(c *fiber.Ctx) error {
	operation(c, "update_password")

	req := new(dto.UpdatePasswordRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Session.UpdatePassword(c.UserContext(), req.Password), fiber.StatusOK)
}

// currentSession godoc
// @Summary      Current session
// @Description  Public sign-in status. Carries no tokens.
// @Tags         auth
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.SessionResponse}
// @Router       /session [get]
func (h *Handler) currentSession(c *fiber.Ctx) error {
	resp := toSessionResponse(h.Session.Current())
	resp.AccessToken = ""
	return c.JSON(wrapper.ResponseSuccess(fiber.StatusOK, resp))
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	operation(c, "get_profile")
	return respond(c, h.Data.GetUser(c.UserContext(), me(c)), fiber.StatusOK)
}

// updateProfile godoc
// @Summary      Update the signed-in profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body models.ProfileUpdate true "Changed fields"
// @Success      200 {object} wrapper.JSONResult{data=models.Profile}
// @Router       /profile [put]
// @Security     BearerAuth
func (h *Handler) updateProfile(c *fiber.Ctx) error {
	operation(c, "update_profile")

	req := new(models.ProfileUpdate)
	if ok, err := bind(c, req); !ok {
		return err
	}
	return respond(c, h.Session.UpdateProfile(c.UserContext(), *req), fiber.StatusOK)
}
