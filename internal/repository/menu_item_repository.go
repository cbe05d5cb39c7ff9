package repository

import (
	"context"

	"canteen/internal/domain/model"
)

// メニュー一覧の検索条件
type MenuItemListQuery struct {
	Page          int
	Limit         int
	Q             string
	AvailableOnly bool
}

// メニューの保存・取得の約束。在庫の増減は InventoryRepository が持つ。
type MenuItemRepository interface {
	List(ctx context.Context, q MenuItemListQuery) ([]model.MenuItem, int64, error)
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)
	// 見つからないIDはmapに入らない
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error)
	Create(ctx context.Context, m model.MenuItem) (model.MenuItem, error)
}
