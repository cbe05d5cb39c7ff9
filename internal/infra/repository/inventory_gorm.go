package repository

import (
	"context"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 販売中で在庫が足りるときだけ減らす。読んでから書くのではなく1本のUPDATEで判定する。
func (r *InventoryGormRepository) Reserve(ctx context.Context, menuItemID int64, qty int64) error {
	if qty <= 0 {
		return repo.ErrInsufficientStock
	}

	res := r.db.WithContext(ctx).
		Model(&model.MenuItem{}).
		Where("id = ? AND is_available = ? AND available_quantity >= ?", menuItemID, true, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"total_orders":       gorm.Expr("total_orders + ?", qty),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrInsufficientStock
	}
	return nil
}

// 在庫戻し（キャンセル）。販売停止中でも戻す。
func (r *InventoryGormRepository) Release(ctx context.Context, menuItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.MenuItem{}).
		Where("id = ?", menuItemID).
		Update("available_quantity", gorm.Expr("available_quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetStock(ctx context.Context, menuItemID int64, qty int64, isAvailable *bool) error {
	updates := map[string]any{"available_quantity": qty}
	if isAvailable != nil {
		updates["is_available"] = *isAvailable
	}

	res := r.db.WithContext(ctx).
		Model(&model.MenuItem{}).
		Where("id = ?", menuItemID).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴作成
func (r *InventoryGormRepository) RecordAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(&adj).Error
}

// 新しい順
func (r *InventoryGormRepository) ListAdjustments(ctx context.Context, menuItemID int64, limit int) ([]model.InventoryAdjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var out []model.InventoryAdjustment
	err := r.db.WithContext(ctx).
		Where("menu_item_id = ?", menuItemID).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
