package middleware

import (
	"net/http"

	"canteen/internal/repository"

	"github.com/labstack/echo/v4"
)

// 強制ログアウト後の古いトークンと、停止済みユーザーを401にする。
// AuthJWT の後ろに置く
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserID(c)
			tv, tvOK := c.Get(CtxTokenVersionKey).(int)
			if !ok || !tvOK {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			switch {
			case err != nil, user == nil:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case !user.IsActive, user.TokenVersion != tv:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}
