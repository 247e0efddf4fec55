package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/user"
)

func staffMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsPrivileged() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// formatMB formats a size for middleware.BodyLimit.
func formatMB(mb int64) string {
	return strconv.FormatInt(mb, 10) + "M"
}
