package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"canteen/internal/domain/event"
	"canteen/internal/domain/lifecycle"
	"canteen/internal/domain/model"
	"canteen/internal/domain/pricing"
	"canteen/internal/infra/db/dbtest"
	infra "canteen/internal/infra/repository"
	"canteen/internal/usecase"
	"canteen/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// 決まった番号を順に返す。使い切ったら最後の番号を返し続ける
type seqNumbers struct {
	mu   sync.Mutex
	nums []string
	i    int
}

func (s *seqNumbers) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nums[s.i]
	if s.i < len(s.nums)-1 {
		s.i++
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	gdb    *gorm.DB
	clock  *fakeClock
	pub    *recordingPublisher
	orders *usecase.OrderUsecase
	admin  *usecase.AdminOrderUsecase
	cart   *usecase.CartUsecase
	menu   *usecase.MenuUsecase
}

func newEnv(t *testing.T, numbers ...string) *testEnv {
	t.Helper()
	if len(numbers) == 0 {
		numbers = []string{"ORD00000001001", "ORD00000001002", "ORD00000001003", "ORD00000001004", "ORD00000001005"}
	}

	gdb := dbtest.Open(t)
	log := logger.Discard()
	clock := &fakeClock{t: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}

	tx := infra.NewTxManagerGorm(gdb, log)
	orderRepo := infra.NewOrderGormRepository(gdb)
	settings := usecase.OrderSettings{
		Pricing:     pricing.DefaultCalculator(),
		TimeOffsets: pricing.DefaultTimeOffsets(),
		Policy:      lifecycle.Strict,
	}

	return &testEnv{
		gdb:    gdb,
		clock:  clock,
		pub:    pub,
		orders: usecase.NewOrderUsecase(tx, orderRepo, &seqNumbers{nums: numbers}, pub, clock, log, settings),
		admin: usecase.NewAdminOrderUsecase(tx, orderRepo, infra.NewUserGormRepository(gdb),
			infra.NewAuditLogGormRepository(gdb), pub, clock, log, lifecycle.Strict),
		cart: usecase.NewCartUsecase(tx),
		menu: usecase.NewMenuUsecase(tx, infra.NewMenuItemGormRepository(gdb), infra.NewInventoryGormRepository(gdb), clock, log),
	}
}

func (e *testEnv) seedUser(t *testing.T, email string, role model.Role) usecase.Actor {
	t.Helper()
	u := &model.User{FullName: "Test " + email, Email: email, PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, infra.NewUserGormRepository(e.gdb).Create(context.Background(), u))
	return usecase.Actor{UserID: u.ID, Role: role}
}

func (e *testEnv) seedMenuItem(t *testing.T, name, price string, qty, prep int64) model.MenuItem {
	t.Helper()
	m, err := infra.NewMenuItemGormRepository(e.gdb).Create(context.Background(), model.MenuItem{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		IsAvailable:       true,
		AvailableQuantity: qty,
		PrepTime:          prep,
	})
	require.NoError(t, err)
	return m
}

func (e *testEnv) stock(t *testing.T, id int64) model.MenuItem {
	t.Helper()
	m, err := infra.NewMenuItemGormRepository(e.gdb).FindByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (e *testEnv) addToCart(t *testing.T, userID, menuItemID, qty int64) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), userID, usecase.AddCartItemInput{MenuItemID: menuItemID, Quantity: qty})
	require.NoError(t, err)
}

func pickup() usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{PaymentMethod: "cash", DeliveryType: "pickup"}
}

func assertKind(t *testing.T, err error, status int, kind usecase.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	assert.Equal(t, kind, he.Kind)
}

var errBroker = errors.New("broker down")
