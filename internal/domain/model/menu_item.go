package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// メニュー（食堂の商品）
// 在庫はAvailableQuantityで持つ。注文確定で減り、キャンセルで戻る。
type MenuItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountPercent   int64           `gorm:"not null;default:0" json:"discountPercent"`
	IsAvailable       bool            `gorm:"not null;default:true" json:"isAvailable"`
	AvailableQuantity int64           `gorm:"not null;default:100" json:"availableQuantity"`
	PrepTime          int64           `gorm:"not null;default:10" json:"prepTime"` // 分
	TotalOrders       int64           `gorm:"not null;default:0" json:"totalOrders"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

var hundred = decimal.NewFromInt(100)

// 割引後の価格。カート追加時のスナップショットに使う。
func (m MenuItem) FinalPrice() decimal.Decimal {
	if m.DiscountPercent <= 0 {
		return m.Price
	}
	off := m.Price.Mul(decimal.NewFromInt(m.DiscountPercent)).Div(hundred)
	return m.Price.Sub(off).Round(2)
}
