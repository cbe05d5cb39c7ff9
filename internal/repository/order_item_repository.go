package repository

import (
	"context"

	"canteen/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

// ステータス履歴は追記のみ
type OrderStatusHistoryRepository interface {
	Append(ctx context.Context, h model.OrderStatusHistory) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
}
