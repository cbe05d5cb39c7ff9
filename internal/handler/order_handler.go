package handler

import (
	"net/http"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/repository"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc      *usecase.OrderUsecase
	adminUC *usecase.AdminOrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, adminUC *usecase.AdminOrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, adminUC: adminUC}
}

type deliveryAddressRequest struct {
	Building     string `json:"building" validate:"required,max=255"`
	Room         string `json:"room" validate:"max=100"`
	Landmark     string `json:"landmark" validate:"max=255"`
	Instructions string `json:"instructions" validate:"max=500"`
}

type placeOrderRequest struct {
	PaymentMethod   string                  `json:"paymentMethod" validate:"required,oneof=cash card upi wallet online"`
	DeliveryType    string                  `json:"deliveryType" validate:"required,oneof=pickup dine-in delivery"`
	DeliveryAddress *deliveryAddressRequest `json:"deliveryAddress" validate:"required_if=DeliveryType delivery"`
	CustomerNotes   string                  `json:"customerNotes" validate:"max=500"`
}

type cancelOrderRequest struct {
	CancelReason string `json:"cancelReason" validate:"max=500"`
}

// rating の範囲は usecase 側で OutOfRange にする
type rateOrderRequest struct {
	Rating  int64  `json:"rating"`
	Comment string `json:"comment" validate:"max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// /orders 配下は全部 JWT + token_version。管理系はさらに ADMIN 限定
func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/cancel", h.cancel)
	g.PUT("/:id/rate", h.rate)

	admin := middleware.AdminRoleGuard()
	g.GET("/admin/all", h.adminList, admin)
	g.GET("/admin/stats", h.adminStats, admin)
	g.PUT("/:id/status", h.updateStatus, admin)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req placeOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := usecase.PlaceOrderInput{
		PaymentMethod: req.PaymentMethod,
		DeliveryType:  req.DeliveryType,
		CustomerNotes: req.CustomerNotes,
	}
	if req.DeliveryAddress != nil {
		in.DeliveryAddress = &model.DeliveryAddress{
			Building:     req.DeliveryAddress.Building,
			Room:         req.DeliveryAddress.Room,
			Landmark:     req.DeliveryAddress.Landmark,
			Instructions: req.DeliveryAddress.Instructions,
		}
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, usecase.ListOrdersInput{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req cancelOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Cancel(c.Request().Context(), actor, id, req.CancelReason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) rate(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req rateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Rate(c.Request().Context(), actor, id, usecase.RateOrderInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) adminList(c echo.Context) error {
	page, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.adminUC.List(c.Request().Context(), usecase.AdminListOrdersInput{
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("paymentStatus"),
		Search:        c.QueryParam("search"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) adminStats(c echo.Context) error {
	out, err := h.adminUC.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	// 操作した管理者ID（監査ログ用）
	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.adminUC.UpdateStatus(c.Request().Context(), adminID, id, usecase.AdminUpdateOrderStatusInput{
		Status: req.Status,
		Note:   req.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
