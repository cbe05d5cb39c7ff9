package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// 受付から完了までの順序
var OrderStatusFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// completed / cancelled からは遷移できない
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet, PaymentMethodOnline:
		return true
	}
	return false
}

type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDineIn   DeliveryType = "dine-in"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

func (d DeliveryType) Valid() bool {
	switch d {
	case DeliveryTypePickup, DeliveryTypeDineIn, DeliveryTypeDelivery:
		return true
	}
	return false
}

// 注文メモの最大文字数
const MaxCustomerNotesLen = 500

// 配達先（deliveryType=deliveryのときだけ入る）
type DeliveryAddress struct {
	Building     string `gorm:"type:varchar(255)" json:"building"`
	Room         string `gorm:"type:varchar(100)" json:"room,omitempty"`
	Landmark     string `gorm:"type:varchar(255)" json:"landmark,omitempty"`
	Instructions string `gorm:"type:varchar(500)" json:"instructions,omitempty"`
}

func (a DeliveryAddress) IsZero() bool {
	return a == DeliveryAddress{}
}

// 評価（completedの注文だけ）
type Rating struct {
	Value   int64      `gorm:"column:value" json:"value"`
	Comment string     `gorm:"column:comment;type:text" json:"comment,omitempty"`
	RatedAt *time.Time `gorm:"column:rated_at" json:"ratedAt"`
}

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"orderNumber"`
	UserID      int64  `gorm:"not null;index:idx_orders_user_created" json:"userId"`

	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	DeliveryFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"deliveryFee"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"paymentMethod"`

	DeliveryType    DeliveryType    `gorm:"type:varchar(20);not null" json:"deliveryType"`
	DeliveryAddress DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_address_" json:"deliveryAddress"`

	EstimatedTime int64  `gorm:"not null" json:"estimatedTime"`
	ActualTime    *int64 `json:"actualTime"`
	CustomerNotes string `gorm:"type:varchar(500)" json:"customerNotes,omitempty"`

	Rating Rating `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`

	CancelReason string     `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt"`
	CompletedAt  *time.Time `json:"completedAt"`

	CreatedAt time.Time `gorm:"not null;index:idx_orders_user_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"statusHistory"`
}
