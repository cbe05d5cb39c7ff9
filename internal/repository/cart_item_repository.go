package repository

import (
	"context"

	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByCartAndMenuItem(ctx context.Context, cartID int64, menuItemID int64) (model.CartItem, error)
	// 同一メニューは数量加算。instructions が空でなければ上書き。
	UpsertByCartAndMenuItem(ctx context.Context, cartID int64, menuItemID int64, addQty int64, unitPrice decimal.Decimal, instructions string) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64, instructions *string) error
	DeleteByID(ctx context.Context, cartItemID int64) error
}
