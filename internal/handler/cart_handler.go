package handler

import (
	"net/http"

	"canteen/internal/config"
	"canteen/internal/middleware"
	"canteen/internal/repository"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type addCartItemRequest struct {
	MenuItemID          int64  `json:"menuItemId" validate:"required,gt=0"`
	Quantity            int64  `json:"quantity" validate:"required,gte=1"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=200"`
}

// quantity 0 は行の削除
type updateCartItemRequest struct {
	Quantity            int64   `json:"quantity" validate:"gte=0"`
	SpecialInstructions *string `json:"specialInstructions" validate:"omitempty,max=200"`
}

// /cart, /cart/items/:menuItemId を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.DELETE("", h.clear)
	g.POST("/items", h.addItem)
	g.PUT("/items/:menuItemId", h.updateItem)
	g.DELETE("/items/:menuItemId", h.removeItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req addCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddItem(c.Request().Context(), userID, usecase.AddCartItemInput{
		MenuItemID:          req.MenuItemID,
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	menuItemID, ok := pathID(c, "menuItemId")
	if !ok {
		return badRequest(c, "invalid menuItemId")
	}

	var req updateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), userID, menuItemID, usecase.UpdateCartItemInput{
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	menuItemID, ok := pathID(c, "menuItemId")
	if !ok {
		return badRequest(c, "invalid menuItemId")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), userID, menuItemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Clear(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
