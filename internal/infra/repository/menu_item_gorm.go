package repository

import (
	"context"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

// 検索/販売中のみ/ページング付きで返す。
func (r *MenuItemGormRepository) List(ctx context.Context, q repo.MenuItemListQuery) ([]model.MenuItem, int64, error) {
	var items []model.MenuItem
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.MenuItem{})

	if q.AvailableOnly {
		tx = tx.Where("is_available = ?", true)
	}

	// q nameを対象
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.MenuItem{}, 0, err
	}

	page, limit := normalizePage(q.Page, q.Limit, 20, 100)
	offset := (page - 1) * limit
	if err := tx.Order("name asc").Order("id asc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return []model.MenuItem{}, 0, err
	}

	return items, total, nil
}

// IDでメニューを取得
func (r *MenuItemGormRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var m model.MenuItem
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return model.MenuItem{}, translate(err)
	}
	return m, nil
}

func (r *MenuItemGormRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	out := make(map[int64]model.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []model.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, m := range items {
		out[m.ID] = m
	}
	return out, nil
}

// メニューの作成
func (r *MenuItemGormRepository) Create(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.MenuItem{}, translate(err)
	}
	return m, nil
}
