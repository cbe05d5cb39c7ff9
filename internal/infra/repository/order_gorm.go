package repository

import (
	"context"
	"strings"
	"time"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") })
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := preloadItems(r.db.WithContext(ctx)).
		Preload("StatusHistory", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 20, 100)

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	// 注文番号の部分一致
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(order_number) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", f.To.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	if err := preloadItems(q).Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var out []model.Order
	err := preloadItems(r.db.WithContext(ctx)).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderGormRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	var rows []struct {
		Status model.OrderStatus
		N      int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// 明細と履歴は別のrepoで作る
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Omit("Items", "StatusHistory").Create(&order).Error; err != nil {
		return 0, translate(err)
	}
	return order.ID, nil
}

// 楽観ロック: 読んだときの status のままなら更新する
func (r *OrderGormRepository) UpdateLifecycle(ctx context.Context, o model.Order, prev model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", o.ID, prev).
		Updates(map[string]any{
			"status":         o.Status,
			"payment_status": o.PaymentStatus,
			"cancel_reason":  o.CancelReason,
			"cancelled_at":   o.CancelledAt,
			"completed_at":   o.CompletedAt,
			"actual_time":    o.ActualTime,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (r *OrderGormRepository) UpdateRating(ctx context.Context, orderID int64, rating model.Rating) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusCompleted).
		Updates(map[string]any{
			"rating_value":    rating.Value,
			"rating_comment":  rating.Comment,
			"rating_rated_at": rating.RatedAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}
