package repository

import (
	"context"
	"time"

	"canteen/internal/domain/model"
)

// 監査ログの絞り込み条件。
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// 監査ログの保存・一覧取得の約束。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順。件数も返す
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error)
}
