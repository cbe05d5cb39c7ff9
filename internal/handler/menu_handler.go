package handler

import (
	"net/http"
	"strconv"

	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /menu の公開API
type MenuHandler struct {
	uc *usecase.MenuUsecase
}

// DI
func NewMenuHandler(uc *usecase.MenuUsecase) *MenuHandler {
	return &MenuHandler{uc: uc}
}

// 公開メニューのルートを登録
func (h *MenuHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/menu", h.list)
	e.GET("/menu/:id", h.detail)
}

func (h *MenuHandler) list(c echo.Context) error {
	page, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	// available=true で在庫ありだけ
	availableOnly := false
	if v := c.QueryParam("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid available")
		}
		availableOnly = b
	}

	out, err := h.uc.ListMenu(c.Request().Context(), usecase.ListMenuInput{
		Page:          page,
		Limit:         limit,
		Q:             c.QueryParam("q"),
		AvailableOnly: availableOnly,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MenuHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMenuItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
