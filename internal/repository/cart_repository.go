package repository

import (
	"context"

	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateTotals(ctx context.Context, cartID int64, totalItems int64, subtotal decimal.Decimal) error
	// 明細を全削除して合計を0に戻す（カート自体は残す）
	Clear(ctx context.Context, cartID int64) error
}
