package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"canteen/internal/domain/event"
	"canteen/internal/domain/lifecycle"
	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

// ステータス変更1回分の依頼
type statusChange struct {
	orderID int64
	actor   Actor
	event   lifecycle.Event
	policy  lifecycle.Policy
	// 読み込んだ注文に対する権限チェック（nilなら無し）
	authorize func(o model.Order) error
	action    model.AuditAction
}

// 状態遷移は利用者のキャンセルも管理者の更新もここを通す
type orderTransitioner struct {
	tx     repo.TransactionManager
	events EventPublisher
	clock  Clock
	log    *slog.Logger
}

func (t *orderTransitioner) apply(ctx context.Context, req statusChange) (model.Order, error) {
	now := t.clock.Now()
	var (
		updated model.Order
		prev    model.OrderStatus
	)

	err := t.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, req.orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return storageError(err)
		}
		if req.authorize != nil {
			if err := req.authorize(o); err != nil {
				return err
			}
		}

		next, effects, err := lifecycle.Transition(o, req.event, now, req.policy)
		if err != nil {
			return lifecycleError(err)
		}

		//読んだ時のstatusのままなら更新（同時更新は409）
		if err := r.Orders().UpdateLifecycle(ctx, next, o.Status); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "order was updated concurrently, reload and retry")
			}
			return storageError(err)
		}

		entry := next.StatusHistory[len(next.StatusHistory)-1]
		if err := r.StatusHistory().Append(ctx, entry); err != nil {
			return storageError(err)
		}

		//キャンセルは明細の数量をそのまま在庫へ戻す
		for _, e := range lifecycle.Releases(effects) {
			err := r.Inventory().Release(ctx, e.MenuItemID, e.Quantity)
			if errors.Is(err, repo.ErrNotFound) {
				t.log.WarnContext(ctx, "release skipped, menu item missing",
					slog.Int64("order_id", o.ID),
					slog.Int64("menu_item_id", e.MenuItemID),
					slog.Int64("quantity", e.Quantity),
					slog.Bool("needs_reconciliation", true),
				)
				continue
			}
			if err != nil {
				return storageError(err)
			}
			if err := r.Inventory().RecordAdjustment(ctx, model.InventoryAdjustment{
				MenuItemID:  e.MenuItemID,
				OrderID:     o.ID,
				ActorUserID: req.actor.UserID,
				Delta:       e.Quantity,
				Reason:      model.AdjustmentReasonOrderCancelled,
			}); err != nil {
				return storageError(err)
			}
		}

		if err := r.AuditLogs().Create(ctx, orderAudit(req.action, req.actor.UserID, o, next, now)); err != nil {
			return storageError(err)
		}

		updated = next
		prev = o.Status
		return nil
	})
	if err != nil {
		return model.Order{}, storageError(err)
	}

	ev := event.FromOrder(event.OrderStatusChanged, updated, now)
	ev.PreviousStatus = prev
	ev.ActorUserID = req.actor.UserID
	ev.Note = req.event.Note
	publish(ctx, t.events, t.log, ev)

	return updated, nil
}

// 監査ログ用のスナップショット
type orderSnapshot struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	CancelReason  string              `json:"cancelReason,omitempty"`
}

func orderAudit(action model.AuditAction, actorID int64, before, after model.Order, now time.Time) model.AuditLog {
	b, _ := json.Marshal(orderSnapshot{Status: before.Status, PaymentStatus: before.PaymentStatus, CancelReason: before.CancelReason})
	a, _ := json.Marshal(orderSnapshot{Status: after.Status, PaymentStatus: after.PaymentStatus, CancelReason: after.CancelReason})
	return model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   before.ID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    now,
	}
}

func lifecycleError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidStatus):
		return NewKindError(http.StatusBadRequest, KindInvalidStatus, "invalid status")
	case errors.Is(err, lifecycle.ErrAlreadyTerminal):
		return NewKindError(http.StatusBadRequest, KindAlreadyTerm, "order is already completed or cancelled")
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		return NewKindError(http.StatusConflict, KindIllegalMove, err.Error())
	case errors.Is(err, lifecycle.ErrNotCompleted):
		return NewKindError(http.StatusBadRequest, KindNotCompleted, "can only rate completed orders")
	case errors.Is(err, lifecycle.ErrRatingOutOfRange):
		return NewKindError(http.StatusBadRequest, KindOutOfRange, "rating must be between 1 and 5")
	}
	return storageError(err)
}

// 送信失敗は注文を失敗にしない（ログだけ）
func publish(ctx context.Context, p EventPublisher, log *slog.Logger, ev event.OrderEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.WarnContext(ctx, "order event publish failed",
			slog.String("type", string(ev.Type)),
			slog.Int64("order_id", ev.OrderID),
			slog.Any("error", err),
		)
	}
}
