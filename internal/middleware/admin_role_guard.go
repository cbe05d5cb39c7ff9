package middleware

import (
	"net/http"

	"canteen/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleがadminかどうかを確認します。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(model.Role)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//userは拒否、adminだけ許可
			if role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Kind: "AuthorizationError"})
			}

			return next(c)
		}
	}
}
