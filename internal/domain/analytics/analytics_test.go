package analytics_test

import (
	"testing"
	"time"

	"canteen/internal/domain/analytics"
	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func order(status model.OrderStatus, total string, at time.Time, items ...model.OrderItem) model.Order {
	return model.Order{Status: status, Total: dec(total), CreatedAt: at, Items: items}
}

func line(id int64, name string, qty int64, price string) model.OrderItem {
	return model.OrderItem{MenuItemID: id, Name: name, Quantity: qty, UnitPrice: dec(price)}
}

func TestBuild(t *testing.T) {
	d1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)

	orders := []model.Order{
		order(model.OrderStatusCompleted, "168.00", d1, line(1, "Dosa", 2, "80.00")),
		order(model.OrderStatusConfirmed, "52.50", d1, line(2, "Coffee", 1, "50.00")),
		order(model.OrderStatusReady, "105.00", d2, line(1, "Dosa", 1, "80.00"), line(2, "Coffee", 1, "20.00")),
		order(model.OrderStatusPending, "999.00", d2, line(3, "Thali", 1, "999.00")),
		order(model.OrderStatusCancelled, "10.00", d2, line(3, "Thali", 1, "10.00")),
	}

	rep := analytics.Build(orders, time.UTC, 0)

	assert.Equal(t, int64(3), rep.TotalOrders)
	assert.True(t, dec("325.50").Equal(rep.TotalRevenue), rep.TotalRevenue.String())
	assert.True(t, dec("108.50").Equal(rep.AverageOrderValue), rep.AverageOrderValue.String())

	assert.Equal(t, int64(1), rep.StatusBreakdown[model.OrderStatusPending])
	assert.Equal(t, int64(1), rep.StatusBreakdown[model.OrderStatusCancelled])
	assert.Equal(t, int64(1), rep.StatusBreakdown[model.OrderStatusCompleted])

	require.Len(t, rep.DailyRevenue, 2)
	assert.Equal(t, "2026-05-01", rep.DailyRevenue[0].Date)
	assert.Equal(t, int64(2), rep.DailyRevenue[0].Orders)
	assert.True(t, dec("220.50").Equal(rep.DailyRevenue[0].Revenue))
	assert.Equal(t, "2026-05-02", rep.DailyRevenue[1].Date)

	require.Len(t, rep.PopularItems, 2)
	assert.Equal(t, int64(1), rep.PopularItems[0].MenuItemID)
	assert.Equal(t, int64(2), rep.PopularItems[0].OrderCount)
	assert.Equal(t, int64(3), rep.PopularItems[0].TotalQuantity)
	assert.True(t, dec("240.00").Equal(rep.PopularItems[0].TotalRevenue))
	assert.Equal(t, int64(2), rep.PopularItems[1].MenuItemID)
}

func TestBuild_Empty(t *testing.T) {
	rep := analytics.Build(nil, nil, 10)
	assert.Equal(t, int64(0), rep.TotalOrders)
	assert.True(t, rep.TotalRevenue.IsZero())
	assert.True(t, rep.AverageOrderValue.IsZero())
	assert.NotNil(t, rep.DailyRevenue)
	assert.NotNil(t, rep.PopularItems)
}

func TestBuild_TopN(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var orders []model.Order
	for i := int64(1); i <= 12; i++ {
		orders = append(orders, order(model.OrderStatusConfirmed, "10.00", at, line(i, "x", i, "1.00")))
	}

	rep := analytics.Build(orders, time.UTC, 5)
	require.Len(t, rep.PopularItems, 5)
	// orderCount が同じなら数量の多い順
	assert.Equal(t, int64(12), rep.PopularItems[0].MenuItemID)
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC)

	r := analytics.ResolveRange(nil, nil, now)
	assert.Equal(t, now, r.To)
	assert.Equal(t, now.Add(-30*24*time.Hour), r.From)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r = analytics.ResolveRange(&from, nil, now)
	assert.Equal(t, from, r.From)
	assert.Equal(t, now, r.To)
}

func TestSummarizeToday(t *testing.T) {
	at := time.Now()
	orders := []model.Order{
		{Total: dec("100.00"), PaymentStatus: model.PaymentStatusPaid, CreatedAt: at},
		{Total: dec("50.00"), PaymentStatus: model.PaymentStatusPending, CreatedAt: at},
		{Total: dec("25.25"), PaymentStatus: model.PaymentStatusPaid, CreatedAt: at},
	}

	s := analytics.SummarizeToday(orders)
	assert.Equal(t, int64(3), s.Orders)
	assert.True(t, dec("125.25").Equal(s.Revenue))
}

func TestCountsTowardRevenue(t *testing.T) {
	for _, st := range analytics.RevenueStatuses() {
		assert.True(t, analytics.CountsTowardRevenue(st))
	}
	assert.False(t, analytics.CountsTowardRevenue(model.OrderStatusPending))
	assert.False(t, analytics.CountsTowardRevenue(model.OrderStatusCancelled))
}
