package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	auth "github.com/pulseapp/pulse-auth"
)

const (
	messageLoggedOut       = "Logged out successfully"
	messageProfileUpdated  = "Profile updated successfully"
	messagePasswordChanged = "Password changed successfully"
)

func (c *Controller) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":      "ok",
		"message":     "Pulse auth service is running",
		"environment": c.Environment,
		"timestamp":   c.now().UTC(),
	})
}

func (c *Controller) CheckEmail(ctx *fiber.Ctx) error {
	available, err := c.Auther.CheckEmailAvailability(ctx.UserContext(), ctx.Query("email"))
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"available": available})
}

func (c *Controller) Signup(ctx *fiber.Ctx) error {
	var payload auth.RegistrationRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return malformedBody(err)
	}

	result, err := c.Registrar.Register(ctx.UserContext(), payload)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": result.Message,
		"user":    result.Account,
	})
}

func (c *Controller) Login(ctx *fiber.Ctx) error {
	var payload auth.LoginRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return malformedBody(err)
	}

	result, err := c.Auther.Login(ctx.UserContext(), payload)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success":   true,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.Account,
	})
}

// Logout always succeeds. Tokens are not revoked server side.
func (c *Controller) Logout(ctx *fiber.Ctx) error {
	if token := bearerToken(ctx); token != "" {
		c.Auther.Logout(ctx.UserContext(), token)
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"message": messageLoggedOut,
	})
}

func (c *Controller) Me(ctx *fiber.Ctx) error {
	account, err := currentAccount(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"user":    account.View(),
	})
}

func (c *Controller) ProfileShow(ctx *fiber.Ctx) error {
	account, err := currentAccount(ctx)
	if err != nil {
		return err
	}

	view, err := c.Profiles.Profile(ctx.UserContext(), account.ID)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"user":    view,
	})
}

func (c *Controller) ProfileUpdate(ctx *fiber.Ctx) error {
	account, err := currentAccount(ctx)
	if err != nil {
		return err
	}

	var payload auth.ProfileUpdateRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return malformedBody(err)
	}

	view, err := c.Profiles.UpdateProfile(ctx.UserContext(), account.ID, payload)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": messageProfileUpdated,
		"user":    view,
	})
}

// HOCTools reports the HOC status of the caller. Only approved HOC accounts
// reach it.
func (c *Controller) HOCTools(ctx *fiber.Ctx) error {
	account, err := currentAccount(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"isHOC":   account.IsHOC(),
		"user":    account.View(),
	})
}

func (c *Controller) ChangePassword(ctx *fiber.Ctx) error {
	account, err := currentAccount(ctx)
	if err != nil {
		return err
	}

	var payload auth.ChangePasswordRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return malformedBody(err)
	}

	if err := c.Profiles.ChangePassword(ctx.UserContext(), account.ID, payload); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": messagePasswordChanged,
	})
}

func (c *Controller) PendingHOCs(ctx *fiber.Ctx) error {
	pending, err := c.Registrar.ListPendingHOC(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"pending": pending,
	})
}

func (c *Controller) ApproveHOC(ctx *fiber.Ctx) error {
	id, err := accountIDParam(ctx)
	if err != nil {
		return err
	}

	view, err := c.Registrar.ApproveHOC(ctx.UserContext(), auth.ActorFromContext(ctx.UserContext()), id)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": auth.MessageHOCApproved,
		"user":    view,
	})
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (c *Controller) RejectHOC(ctx *fiber.Ctx) error {
	id, err := accountIDParam(ctx)
	if err != nil {
		return err
	}

	var payload rejectPayload
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&payload); err != nil {
			return malformedBody(err)
		}
	}

	view, err := c.Registrar.RejectHOC(ctx.UserContext(), auth.ActorFromContext(ctx.UserContext()), id, payload.Reason)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": auth.MessageHOCRejected,
		"user":    view,
	})
}

func accountIDParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw := ctx.Params("userId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalidAccountID(raw)
	}
	return id, nil
}
