package handler

import (
	"net/http"
	"strconv"
	"time"

	"canteen/internal/config"
	"canteen/internal/middleware"
	"canteen/internal/repository"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// /admin/analytics, /admin/audit-logs, /admin/menu/:id/inventory
type AdminHandler struct {
	orders *usecase.AdminOrderUsecase
	menu   *usecase.MenuUsecase
}

func NewAdminHandler(orders *usecase.AdminOrderUsecase, menu *usecase.MenuUsecase) *AdminHandler {
	return &AdminHandler{orders: orders, menu: menu}
}

// InventoryUpdateRequest は在庫数の設定（補充・棚卸し）
type InventoryUpdateRequest struct {
	AvailableQuantity *int64 `json:"availableQuantity" validate:"required,gte=0"`
	IsAvailable       *bool  `json:"isAvailable"`
	Reason            string `json:"reason" validate:"max=255"`
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/analytics", h.analytics)
	admin.GET("/audit-logs", h.auditLogs)
	admin.PUT("/menu/:id/inventory", h.updateInventory)
	admin.GET("/menu/:id/inventory/adjustments", h.adjustments)
}

func (h *AdminHandler) analytics(c echo.Context) error {
	from, err := queryTime(c, "startDate", false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTime(c, "endDate", true)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.Analytics(c.Request().Context(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) auditLogs(c echo.Context) error {
	page, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	actorID, err := queryInt64Ptr(c, "actorUserId")
	if err != nil {
		return writeError(c, err)
	}
	resourceID, err := queryInt64Ptr(c, "resourceId")
	if err != nil {
		return writeError(c, err)
	}
	from, err := queryTime(c, "from", false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.AuditLogs(c.Request().Context(), usecase.AuditLogListInput{
		ActorUserID:  actorID,
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resourceType"),
		ResourceID:   resourceID,
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) updateInventory(c echo.Context) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req InventoryUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.menu.AdminUpdateInventory(c.Request().Context(), adminID, id, usecase.AdminUpdateInventoryInput{
		AvailableQuantity: *req.AvailableQuantity,
		IsAvailable:       req.IsAvailable,
		Reason:            req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) adjustments(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.menu.ListAdjustments(c.Request().Context(), id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RFC3339 か YYYY-MM-DD。日付だけの終端はその日の終わりまで含める
func queryTime(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}
