package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

// adminMiddleware restricts a route to admins, optionally narrowed to the
// given groups.
func adminMiddleware(groups ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyGroup(ctx, groups) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// gradeAccessMiddleware guards grade detail routes. Admins always pass;
// teachers pass only for their assigned grades. A denied teacher gets a 404
// so grade existence is not leaked; a caller with no recognized role gets a
// plain 403.
func gradeAccessMiddleware(guard *access.Guard, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == "" {
				return errors.Wrap(access.ErrForbidden, "no recognized role")
			}
			if guard.CanAccessGrade(ctx.Request().Context(), claims.Subject, ctx.Param(param), claims.Role) {
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

// lessonAccessMiddleware guards lesson detail routes; same policy as
// gradeAccessMiddleware with the owning grade resolved from the lesson.
// A missing lesson is a 404 either way.
func lessonAccessMiddleware(guard *access.Guard, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == "" {
				return errors.Wrap(access.ErrForbidden, "no recognized role")
			}
			ok, err := guard.CanAccessLesson(ctx.Request().Context(), claims.Subject, ctx.Param(param), claims.Role)
			if err != nil {
				return err // not_found surfaces as 404
			}
			if ok {
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

// teacherOrAdminMiddleware lets any recognized role through; callers with no
// known group are rejected.
func teacherOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyGroup(ctx, user.AllGroups) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
