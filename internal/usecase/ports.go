package usecase

import (
	"context"
	"time"

	"canteen/internal/domain/event"
	"canteen/internal/domain/model"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 注文番号を作る約束
type OrderNumberGenerator interface {
	Generate() string
}

// commit後に注文イベントを送る約束
type EventPublisher interface {
	Publish(ctx context.Context, ev event.OrderEvent) error
}

// 認証済みの呼び出し元
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }
