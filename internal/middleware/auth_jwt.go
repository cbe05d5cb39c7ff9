package middleware

import (
	"net/http"
	"strings"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	auth "canteen/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// Bearerトークンを検証して user_id / role / tv を context に入れる
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return AuthJWTWith(auth.NewJWTVerifier(cfg.JWTSecret, nil))
}

func AuthJWTWith(verifier *auth.JWTVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			userID, _ := claims.UserID()

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxTokenVersionKey, claims.TokenVersion)
			return next(c)
		}
	}
}

// "Bearer <token>" 以外は ok=false
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg, Kind: "AuthenticationError"}
}

// handlerから呼ぶ。AuthJWTを通っていなければ ok=false
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	return id, ok && id > 0
}

func Role(c echo.Context) model.Role {
	r, _ := c.Get(CtxUserRoleKey).(model.Role)
	return r
}
