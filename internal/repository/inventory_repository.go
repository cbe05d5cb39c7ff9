package repository

import (
	"context"

	"canteen/internal/domain/model"
)

// 在庫台帳。増減はすべて条件付きUPDATEで行う。
type InventoryRepository interface {
	// 販売中かつ在庫が足りるときだけ減算し、累計注文数を加算する。
	// 0件なら ErrInsufficientStock。
	Reserve(ctx context.Context, menuItemID int64, qty int64) error

	// 在庫戻し（キャンセル）
	Release(ctx context.Context, menuItemID int64, qty int64) error

	// 在庫の現在値を設定（管理者の補充）。isAvailable が nil なら販売状態は変えない。
	SetStock(ctx context.Context, menuItemID int64, qty int64, isAvailable *bool) error

	// 調整履歴作成
	RecordAdjustment(ctx context.Context, adj model.InventoryAdjustment) error

	ListAdjustments(ctx context.Context, menuItemID int64, limit int) ([]model.InventoryAdjustment, error)
}
