package repository

import (
	"context"

	"canteen/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

type OrderStatusHistoryGormRepository struct {
	db *gorm.DB
}

func NewOrderStatusHistoryGormRepository(db *gorm.DB) *OrderStatusHistoryGormRepository {
	return &OrderStatusHistoryGormRepository{db: db}
}

func (r *OrderStatusHistoryGormRepository) Append(ctx context.Context, h model.OrderStatusHistory) error {
	h.ID = 0
	return r.db.WithContext(ctx).Create(&h).Error
}

func (r *OrderStatusHistoryGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var out []model.OrderStatusHistory
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
