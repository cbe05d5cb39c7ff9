package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 1ユーザーにつき1つ。削除はせず空にするだけ。
// TotalItems/Subtotalは明細を変えるたびに再計算する。
type Cart struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64           `gorm:"not null;uniqueIndex" json:"userId"`
	TotalItems int64           `gorm:"not null;default:0" json:"totalItems"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
