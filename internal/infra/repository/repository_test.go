package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/infra/db/dbtest"
	infra "canteen/internal/infra/repository"
	repo "canteen/internal/repository"
	"canteen/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMenuItem(t *testing.T, gdb *gorm.DB, name string, qty int64, available bool) model.MenuItem {
	t.Helper()
	m, err := infra.NewMenuItemGormRepository(gdb).Create(context.Background(), model.MenuItem{
		Name:              name,
		Price:             decimal.RequireFromString("80.00"),
		IsAvailable:       true,
		AvailableQuantity: qty,
		PrepTime:          10,
	})
	require.NoError(t, err)
	if !available {
		// default:true のため作成後に落とす
		require.NoError(t, gdb.Model(&model.MenuItem{}).Where("id = ?", m.ID).Update("is_available", false).Error)
		m.IsAvailable = false
	}
	return m
}

func reload(t *testing.T, gdb *gorm.DB, id int64) model.MenuItem {
	t.Helper()
	m, err := infra.NewMenuItemGormRepository(gdb).FindByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func newOrder(userID int64, number string) model.Order {
	now := time.Now().UTC()
	return model.Order{
		OrderNumber:   number,
		UserID:        userID,
		Subtotal:      decimal.RequireFromString("160.00"),
		Tax:           decimal.RequireFromString("8.00"),
		Total:         decimal.RequireFromString("168.00"),
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: model.PaymentMethodCash,
		DeliveryType:  model.DeliveryTypePickup,
		EstimatedTime: 15,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInventory_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	inv := infra.NewInventoryGormRepository(gdb)
	m := seedMenuItem(t, gdb, "Masala Dosa", 5, true)

	require.NoError(t, inv.Reserve(ctx, m.ID, 2))
	got := reload(t, gdb, m.ID)
	assert.Equal(t, int64(3), got.AvailableQuantity)
	assert.Equal(t, int64(2), got.TotalOrders)

	err := inv.Reserve(ctx, m.ID, 4)
	assert.ErrorIs(t, err, repo.ErrInsufficientStock)
	assert.Equal(t, int64(3), reload(t, gdb, m.ID).AvailableQuantity)

	require.NoError(t, inv.Release(ctx, m.ID, 2))
	got = reload(t, gdb, m.ID)
	assert.Equal(t, int64(5), got.AvailableQuantity)
	// 累計注文数は戻さない
	assert.Equal(t, int64(2), got.TotalOrders)

	assert.ErrorIs(t, inv.Release(ctx, 9999, 1), repo.ErrNotFound)
}

func TestInventory_ReserveUnavailable(t *testing.T) {
	gdb := dbtest.Open(t)
	inv := infra.NewInventoryGormRepository(gdb)
	m := seedMenuItem(t, gdb, "Idli", 50, false)

	err := inv.Reserve(context.Background(), m.ID, 1)
	assert.ErrorIs(t, err, repo.ErrInsufficientStock)
	assert.Equal(t, int64(50), reload(t, gdb, m.ID).AvailableQuantity)
}

func TestInventory_SetStockAndAdjustments(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	inv := infra.NewInventoryGormRepository(gdb)
	m := seedMenuItem(t, gdb, "Vada", 1, true)

	off := false
	require.NoError(t, inv.SetStock(ctx, m.ID, 40, &off))
	got := reload(t, gdb, m.ID)
	assert.Equal(t, int64(40), got.AvailableQuantity)
	assert.False(t, got.IsAvailable)

	require.NoError(t, inv.RecordAdjustment(ctx, model.InventoryAdjustment{MenuItemID: m.ID, ActorUserID: 1, Delta: 39, Reason: model.AdjustmentReasonRestock}))
	require.NoError(t, inv.RecordAdjustment(ctx, model.InventoryAdjustment{MenuItemID: m.ID, OrderID: 3, ActorUserID: 2, Delta: -1, Reason: model.AdjustmentReasonOrderPlaced}))

	adjs, err := inv.ListAdjustments(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, adjs, 2)
	assert.Equal(t, int64(-1), adjs[0].Delta)

	assert.ErrorIs(t, inv.SetStock(ctx, 9999, 1, nil), repo.ErrNotFound)
}

// 同時に注文しても在庫を超えて売らない
func TestInventory_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	tm := infra.NewTxManagerGorm(gdb, logger.Discard())
	m := seedMenuItem(t, gdb, "Biryani", 5, true)

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
				return r.Inventory().Reserve(ctx, m.ID, 1)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repo.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, workers-5, rejected)
	got := reload(t, gdb, m.ID)
	assert.Equal(t, int64(0), got.AvailableQuantity)
	assert.Equal(t, int64(5), got.TotalOrders)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	tm := infra.NewTxManagerGorm(gdb, logger.Discard())
	m := seedMenuItem(t, gdb, "Poha", 10, true)

	boom := errors.New("boom")
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Inventory().Reserve(ctx, m.ID, 3); err != nil {
			return err
		}
		if _, err := r.Orders().Create(ctx, newOrder(1, "ORD00000001001")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(10), reload(t, gdb, m.ID).AvailableQuantity)
	var n int64
	require.NoError(t, gdb.Model(&model.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestOrder_CreateDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	orders := infra.NewOrderGormRepository(dbtest.Open(t))

	_, err := orders.Create(ctx, newOrder(1, "ORD12345678001"))
	require.NoError(t, err)

	_, err = orders.Create(ctx, newOrder(2, "ORD12345678001"))
	assert.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestOrder_FindByIDLoadsItemsAndHistory(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	orders := infra.NewOrderGormRepository(gdb)
	items := infra.NewOrderItemGormRepository(gdb)
	history := infra.NewOrderStatusHistoryGormRepository(gdb)

	id, err := orders.Create(ctx, newOrder(1, "ORD00000002001"))
	require.NoError(t, err)
	require.NoError(t, items.CreateBulk(ctx, id, []model.OrderItem{
		{MenuItemID: 1, Name: "Dosa", Quantity: 2, UnitPrice: decimal.RequireFromString("80.00")},
	}))
	require.NoError(t, history.Append(ctx, model.OrderStatusHistory{OrderID: id, Status: model.OrderStatusPending, Timestamp: time.Now().UTC()}))

	o, err := orders.FindByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Dosa", o.Items[0].Name)
	assert.True(t, decimal.RequireFromString("80").Equal(o.Items[0].UnitPrice))
	require.Len(t, o.StatusHistory, 1)
	assert.True(t, decimal.RequireFromString("168").Equal(o.Total))

	_, err = orders.FindByID(ctx, 424242)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrder_UpdateLifecycleOptimistic(t *testing.T) {
	ctx := context.Background()
	orders := infra.NewOrderGormRepository(dbtest.Open(t))

	o := newOrder(1, "ORD00000003001")
	id, err := orders.Create(ctx, o)
	require.NoError(t, err)
	o.ID = id

	o.Status = model.OrderStatusConfirmed
	require.NoError(t, orders.UpdateLifecycle(ctx, o, model.OrderStatusPending))

	// 既に confirmed なので pending 前提の更新は負ける
	o.Status = model.OrderStatusCancelled
	assert.ErrorIs(t, orders.UpdateLifecycle(ctx, o, model.OrderStatusPending), repo.ErrConflict)

	got, err := orders.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)
}

func TestOrder_UpdateRatingOnlyCompleted(t *testing.T) {
	ctx := context.Background()
	orders := infra.NewOrderGormRepository(dbtest.Open(t))

	o := newOrder(1, "ORD00000004001")
	id, err := orders.Create(ctx, o)
	require.NoError(t, err)

	now := time.Now().UTC()
	r := model.Rating{Value: 4, Comment: "good", RatedAt: &now}
	assert.ErrorIs(t, orders.UpdateRating(ctx, id, r), repo.ErrConflict)

	o.ID = id
	o.Status = model.OrderStatusCompleted
	require.NoError(t, orders.UpdateLifecycle(ctx, o, model.OrderStatusPending))
	require.NoError(t, orders.UpdateRating(ctx, id, r))

	got, err := orders.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Rating.Value)
	assert.Equal(t, "good", got.Rating.Comment)
}

func TestOrder_ListFilters(t *testing.T) {
	ctx := context.Background()
	orders := infra.NewOrderGormRepository(dbtest.Open(t))

	a := newOrder(1, "ORD11111111001")
	b := newOrder(1, "ORD22222222002")
	b.Status = model.OrderStatusCompleted
	b.PaymentStatus = model.PaymentStatusPaid
	c := newOrder(2, "ORD33333333003")
	for _, o := range []model.Order{a, b, c} {
		_, err := orders.Create(ctx, o)
		require.NoError(t, err)
	}

	uid := int64(1)
	list, total, err := orders.List(ctx, repo.OrderListFilter{UserID: &uid, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = orders.List(ctx, repo.OrderListFilter{Status: model.OrderStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ORD22222222002", list[0].OrderNumber)

	list, _, err = orders.List(ctx, repo.OrderListFilter{Search: "ord3333"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].UserID)

	_, total, err = orders.List(ctx, repo.OrderListFilter{PaymentStatus: model.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	counts, err := orders.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.OrderStatusPending])
	assert.Equal(t, int64(1), counts[model.OrderStatusCompleted])
}

func TestCart_LifecycleOfItems(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	carts := infra.NewCartGormRepository(gdb)

	c1, err := carts.GetOrCreateByUserID(ctx, 7)
	require.NoError(t, err)
	c2, err := carts.GetOrCreateByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	price := decimal.RequireFromString("80.00")
	require.NoError(t, carts.UpsertByCartAndMenuItem(ctx, c1.ID, 1, 1, price, "less spicy"))
	require.NoError(t, carts.UpsertByCartAndMenuItem(ctx, c1.ID, 1, 2, price, ""))

	item, err := carts.FindByCartAndMenuItem(ctx, c1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.Quantity)
	assert.Equal(t, "less spicy", item.SpecialInstructions)

	require.NoError(t, carts.UpdateQuantity(ctx, item.ID, 5, nil))
	require.NoError(t, carts.UpdateTotals(ctx, c1.ID, 5, decimal.RequireFromString("400")))

	require.NoError(t, carts.Clear(ctx, c1.ID))
	items, err := carts.ListByCartID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	cart, err := carts.FindByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cart.TotalItems)
	assert.True(t, cart.Subtotal.IsZero())

	_, err = carts.FindByUserID(ctx, 8)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUser_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	users := infra.NewUserGormRepository(dbtest.Open(t))

	u := &model.User{FullName: "Asha", Email: "asha@campus.edu", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, users.Create(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &model.User{FullName: "Other", Email: "asha@campus.edu", PasswordHash: "x", Role: model.RoleUser}
	assert.ErrorIs(t, users.Create(ctx, dup), repo.ErrDuplicate)

	got, err := users.FindByEmail(ctx, "asha@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	require.NoError(t, users.IncrementTokenVersion(ctx, u.ID))
	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TokenVersion)

	n, err := users.CountByRole(ctx, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAuditLog_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	logs := infra.NewAuditLogGormRepository(dbtest.Open(t))

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, logs.Create(ctx, model.AuditLog{
			ActorUserID:  1,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   i,
			CreatedAt:    time.Now().UTC(),
		}))
	}

	out, total, err := logs.List(ctx, repo.AuditLogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].ResourceID)

	rid := int64(2)
	out, _, err = logs.List(ctx, repo.AuditLogFilter{ResourceID: &rid})
	require.NoError(t, err)
	require.Len(t, out, 1)
}
