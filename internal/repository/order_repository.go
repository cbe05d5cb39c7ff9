package repository

import (
	"context"
	"time"

	"canteen/internal/domain/model"
)

// 注文一覧の絞り込み（利用者・管理者共通）
type OrderListFilter struct {
	Page          int
	Limit         int
	UserID        *int64
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	// 注文番号の部分一致（大文字小文字を区別しない）
	Search string
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// 明細と履歴も一緒に読む
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	// 期間内の注文を明細付きで全件
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)

	// 注文番号が衝突したら ErrDuplicate
	Create(ctx context.Context, order model.Order) (int64, error)

	// status が prev のままのときだけ更新する。0件なら ErrConflict。
	UpdateLifecycle(ctx context.Context, order model.Order, prev model.OrderStatus) error
	UpdateRating(ctx context.Context, orderID int64, rating model.Rating) error
}
