package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文時点のスナップショット。作成後は変更しない。
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"orderId"`
	MenuItemID          int64           `gorm:"not null;index" json:"menuItemId"`
	Name                string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	SpecialInstructions string          `gorm:"type:varchar(200)" json:"specialInstructions,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
}

// ステータス履歴（追記のみ）
type OrderStatusHistory struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   int64       `gorm:"not null;index" json:"-"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Timestamp time.Time   `gorm:"not null" json:"timestamp"`
	Note      string      `gorm:"type:varchar(500)" json:"note,omitempty"`
}
