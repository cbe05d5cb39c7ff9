package handler

import (
	"errors"
	"net/http"

	"canteen/internal/config"
	"canteen/internal/middleware"
	"canteen/internal/repository"
	auth "canteen/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	uc       *auth.AccountUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, uc *auth.AccountUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(h.cfg),
		middleware.TokenVersionGuard(h.userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found", Kind: "NotFoundError"})
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
