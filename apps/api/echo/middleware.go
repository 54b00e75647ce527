package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/user"
)

// privilegedMiddleware restricts an endpoint to tutors and admins. The
// check runs against the resolved profile, not the token claims, so a role
// change takes effect without waiting for the token to expire.
func privilegedMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			if ident.Privileged {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			if ident.Role == user.RoleAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
