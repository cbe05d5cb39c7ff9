package usecase_test

import (
	"context"
	"errors"
	"time"

	"canteen/internal/domain/event"
	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos       repo.TxRepos
	// 非nilなら fn 失敗時にロールバックも失敗したことにする
	RollbackErr error
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	err := fn(m.Repos)
	if err != nil && m.RollbackErr != nil {
		return errors.Join(repo.ErrRollbackFailed, m.RollbackErr, err)
	}
	return err
}

type TxReposMock struct {
	orders    *OrderRepoMock
	history   *HistoryRepoMock
	inventory *InventoryRepoMock
	audit     *AuditRepoMock
}

func (r *TxReposMock) Orders() repo.OrderRepository                     { return r.orders }
func (r *TxReposMock) StatusHistory() repo.OrderStatusHistoryRepository { return r.history }
func (r *TxReposMock) Inventory() repo.InventoryRepository              { return r.inventory }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository               { return r.audit }

// 状態遷移では使わない
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { panic("not used") }
func (r *TxReposMock) Carts() repo.CartRepository           { panic("not used") }
func (r *TxReposMock) CartItems() repo.CartItemRepository   { panic("not used") }
func (r *TxReposMock) MenuItems() repo.MenuItemRepository   { panic("not used") }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	args := m.Called(ctx, from, to)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(map[model.OrderStatus]int64)
	return c, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in status tests")
}

func (m *OrderRepoMock) UpdateLifecycle(ctx context.Context, order model.Order, prev model.OrderStatus) error {
	args := m.Called(ctx, order.Status, prev)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateRating(ctx context.Context, orderID int64, rating model.Rating) error {
	args := m.Called(ctx, orderID, rating.Value)
	return args.Error(0)
}

type HistoryRepoMock struct{ mock.Mock }

func (m *HistoryRepoMock) Append(ctx context.Context, h model.OrderStatusHistory) error {
	args := m.Called(ctx, h.Status)
	return args.Error(0)
}

func (m *HistoryRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	panic("not used in status tests")
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) Reserve(ctx context.Context, menuItemID int64, qty int64) error {
	panic("not used in status tests")
}

func (m *InventoryRepoMock) Release(ctx context.Context, menuItemID int64, qty int64) error {
	args := m.Called(ctx, menuItemID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) SetStock(ctx context.Context, menuItemID int64, qty int64, isAvailable *bool) error {
	panic("not used in status tests")
}

func (m *InventoryRepoMock) RecordAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	args := m.Called(ctx, adj.MenuItemID, adj.Delta)
	return args.Error(0)
}

func (m *InventoryRepoMock) ListAdjustments(ctx context.Context, menuItemID int64, limit int) ([]model.InventoryAdjustment, error) {
	panic("not used in status tests")
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log.Action)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, ev event.OrderEvent) error {
	args := m.Called(ctx, ev.Type)
	return args.Error(0)
}

func pendingOrder() model.Order {
	return model.Order{
		ID:            7,
		OrderNumber:   "ORD12345678042",
		UserID:        3,
		Total:         decimal.RequireFromString("168.00"),
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		CreatedAt:     time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		Items: []model.OrderItem{
			{MenuItemID: 11, Name: "Masala Dosa", Quantity: 2, UnitPrice: decimal.RequireFromString("80.00")},
		},
		StatusHistory: []model.OrderStatusHistory{{Status: model.OrderStatusPending, Note: "Order placed"}},
	}
}
