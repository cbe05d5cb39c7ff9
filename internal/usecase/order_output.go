package usecase

import (
	"encoding/json"
	"math"
	"time"

	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 金額は小数2桁のJSON数値で返す（168.00）
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type OrderItemOutput struct {
	MenuItemID          int64       `json:"menuItemId"`
	Name                string      `json:"name"`
	Quantity            int64       `json:"quantity"`
	UnitPrice           json.Number `json:"unitPrice"`
	LineTotal           json.Number `json:"lineTotal"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
}

type StatusHistoryOutput struct {
	Status    model.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Note      string            `json:"note,omitempty"`
}

type RatingOutput struct {
	Value   int64      `json:"value"`
	Comment string     `json:"comment,omitempty"`
	RatedAt *time.Time `json:"ratedAt,omitempty"`
}

type OrderOutput struct {
	ID              int64                  `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	UserID          int64                  `json:"userId"`
	Items           []OrderItemOutput      `json:"items"`
	Subtotal        json.Number            `json:"subtotal"`
	Tax             json.Number            `json:"tax"`
	DeliveryFee     json.Number            `json:"deliveryFee"`
	Discount        json.Number            `json:"discount"`
	Total           json.Number            `json:"total"`
	Status          model.OrderStatus      `json:"status"`
	PaymentStatus   model.PaymentStatus    `json:"paymentStatus"`
	PaymentMethod   model.PaymentMethod    `json:"paymentMethod"`
	DeliveryType    model.DeliveryType     `json:"deliveryType"`
	DeliveryAddress *model.DeliveryAddress `json:"deliveryAddress,omitempty"`
	EstimatedTime   int64                  `json:"estimatedTime"`
	ActualTime      *int64                 `json:"actualTime,omitempty"`
	CustomerNotes   string                 `json:"customerNotes,omitempty"`
	Rating          *RatingOutput          `json:"rating,omitempty"`
	CancelReason    string                 `json:"cancelReason,omitempty"`
	CancelledAt     *time.Time             `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	StatusHistory   []StatusHistoryOutput  `json:"statusHistory"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type OrderListOutput struct {
	Orders     []OrderOutput `json:"orders"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			MenuItemID:          it.MenuItemID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPrice:           money(it.UnitPrice),
			LineTotal:           money(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))),
			SpecialInstructions: it.SpecialInstructions,
		})
	}

	history := make([]StatusHistoryOutput, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, StatusHistoryOutput{Status: h.Status, Timestamp: h.Timestamp, Note: h.Note})
	}

	out := OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Items:         items,
		Subtotal:      money(o.Subtotal),
		Tax:           money(o.Tax),
		DeliveryFee:   money(o.DeliveryFee),
		Discount:      money(o.Discount),
		Total:         money(o.Total),
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		DeliveryType:  o.DeliveryType,
		EstimatedTime: o.EstimatedTime,
		ActualTime:    o.ActualTime,
		CustomerNotes: o.CustomerNotes,
		CancelReason:  o.CancelReason,
		CancelledAt:   o.CancelledAt,
		CompletedAt:   o.CompletedAt,
		StatusHistory: history,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	if o.DeliveryType == model.DeliveryTypeDelivery {
		addr := o.DeliveryAddress
		out.DeliveryAddress = &addr
	}
	if o.Rating.Value > 0 {
		out.Rating = &RatingOutput{Value: o.Rating.Value, Comment: o.Rating.Comment, RatedAt: o.Rating.RatedAt}
	}
	return out
}

func toOrderListOutput(orders []model.Order, total int64, page, limit int) OrderListOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return OrderListOutput{Orders: outs, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
