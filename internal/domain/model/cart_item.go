package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 特記事項の最大文字数
const MaxSpecialInstructionsLen = 200

// カートの明細
// 追加時点の価格（UnitPrice）を必ず保存。menu_item_idはカート内で一意。
type CartItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID              int64           `gorm:"not null;uniqueIndex:idx_cart_menu_item" json:"cartId"`
	MenuItemID          int64           `gorm:"not null;uniqueIndex:idx_cart_menu_item" json:"menuItemId"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	SpecialInstructions string          `gorm:"type:varchar(200)" json:"specialInstructions,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
