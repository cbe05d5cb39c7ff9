package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     *OrderGormRepository
	orderItems *OrderItemGormRepository
	history    *OrderStatusHistoryGormRepository
	carts      *CartGormRepository
	inventory  *InventoryGormRepository
	menuItems  *MenuItemGormRepository
	auditLogs  *AuditLogGormRepository
}

func newTxRepos(db *gorm.DB) *txReposGorm {
	return &txReposGorm{
		orders:     NewOrderGormRepository(db),
		orderItems: NewOrderItemGormRepository(db),
		history:    NewOrderStatusHistoryGormRepository(db),
		carts:      NewCartGormRepository(db),
		inventory:  NewInventoryGormRepository(db),
		menuItems:  NewMenuItemGormRepository(db),
		auditLogs:  NewAuditLogGormRepository(db),
	}
}

func (r *txReposGorm) Orders() repo.OrderRepository                     { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository             { return r.orderItems }
func (r *txReposGorm) StatusHistory() repo.OrderStatusHistoryRepository { return r.history }
func (r *txReposGorm) Carts() repo.CartRepository                       { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository               { return r.carts }
func (r *txReposGorm) Inventory() repo.InventoryRepository              { return r.inventory }
func (r *txReposGorm) MenuItems() repo.MenuItemRepository               { return r.menuItems }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository               { return r.auditLogs }

type TxManagerGorm struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewTxManagerGorm(db *gorm.DB, log *slog.Logger) *TxManagerGorm {
	if log == nil {
		log = slog.Default()
	}
	return &TxManagerGorm{db: db, log: log}
}

// fn がエラーを返したら全部ロールバックする。
// ロールバック自体が失敗したら needs_reconciliation を付けてERRORで残す。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) (err error) {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if p := recover(); p != nil {
			tm.rollback(ctx, tx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	//repoはtxを持ったDBで作り直す
	if err := fn(newTxRepos(tx)); err != nil {
		if rbErr := tm.rollback(ctx, tx, err); rbErr != nil {
			// 元のエラーは包まず文字列だけ残す
			return fmt.Errorf("%w: %v (cause: %v)", repo.ErrRollbackFailed, rbErr, err)
		}
		return err
	}
	return tx.Commit().Error
}

func (tm *TxManagerGorm) rollback(ctx context.Context, tx *gorm.DB, cause error) error {
	err := tx.Rollback().Error
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	tm.log.ErrorContext(ctx, "transaction rollback failed",
		slog.Bool("needs_reconciliation", true),
		slog.String("cause", cause.Error()),
		slog.Any("error", err),
	)
	return err
}

// コンパイル時チェック
var (
	_ repo.OrderRepository              = (*OrderGormRepository)(nil)
	_ repo.OrderItemRepository          = (*OrderItemGormRepository)(nil)
	_ repo.OrderStatusHistoryRepository = (*OrderStatusHistoryGormRepository)(nil)
	_ repo.CartRepository               = (*CartGormRepository)(nil)
	_ repo.CartItemRepository           = (*CartGormRepository)(nil)
	_ repo.InventoryRepository          = (*InventoryGormRepository)(nil)
	_ repo.MenuItemRepository           = (*MenuItemGormRepository)(nil)
	_ repo.AuditLogRepository           = (*AuditLogGormRepository)(nil)
	_ repo.UserRepository               = (*UserGormRepository)(nil)
	_ repo.TransactionManager           = (*TxManagerGorm)(nil)
)
