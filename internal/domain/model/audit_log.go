package model

import "time"

// 注文ステータス更新、キャンセルなど。
type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//注文をキャンセルした操作。
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
	//在庫数・販売状態を変更した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
)

// 何に対する操作か
type AuditResourceType string

const (
	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//メニューに対する操作。
	AuditResourceMenuItem AuditResourceType = "menu_item"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actorUserId"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`

	ResourceID int64 `gorm:"not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"beforeJson"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"afterJson"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
