package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/confsys/core"
)

var orderingParam = "ordering"

// bindOrdering reads the `ordering` query param, eg. `?ordering=last_name,-created_at`.
// Fields not listed in `allowed` are ignored.
func bindOrdering(ctx echo.Context, allowed ...string) []core.DBOrdering {
	return core.ParseOrderings(ctx.QueryParam(orderingParam), allowed...)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}

func (pr *PasswordResetRequest) Clean() {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
}
