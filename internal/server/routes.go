package server

import (
	"canteen/internal/config"
	"canteen/internal/handler"
	"canteen/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はmainで組み立てたハンドラ一式
type Handlers struct {
	UserRepo repository.UserRepository

	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Menu      *handler.MenuHandler
	Cart      *handler.CartHandler
	Order     *handler.OrderHandler
	Admin     *handler.AdminHandler
	AdminUser *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	h.Health.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e, cfg, h.UserRepo)
	h.Menu.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg, h.UserRepo)
	h.Order.RegisterRoutes(e, cfg, h.UserRepo)
	h.Admin.RegisterRoutes(e, cfg, h.UserRepo)
	h.AdminUser.RegisterRoutes(e)
}
