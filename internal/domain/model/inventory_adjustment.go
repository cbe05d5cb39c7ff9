package model

import "time"

// 在庫の増減履歴（在庫台帳）
// 注文確定はマイナス、キャンセルはプラス。管理者の補充は OrderID=0。
type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MenuItemID  int64     `gorm:"not null;index" json:"menuItemId"`
	OrderID     int64     `gorm:"not null;default:0;index" json:"orderId,omitempty"`
	ActorUserID int64     `gorm:"not null;index" json:"actorUserId"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

const (
	AdjustmentReasonOrderPlaced    = "order_placed"
	AdjustmentReasonOrderCancelled = "order_cancelled"
	AdjustmentReasonRestock        = "restock"
)
