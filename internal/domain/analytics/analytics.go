// Package analytics aggregates orders for the admin dashboard.
package analytics

import (
	"sort"
	"time"

	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	DefaultWindow   = 30 * 24 * time.Hour
	DefaultTopItems = 10
	dayLayout       = "2006-01-02"
)

// 売上に数えるステータス（pending と cancelled は除外）
func CountsTowardRevenue(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusConfirmed, model.OrderStatusPreparing,
		model.OrderStatusReady, model.OrderStatusCompleted:
		return true
	}
	return false
}

// RevenueStatuses lists the statuses for which CountsTowardRevenue is true.
func RevenueStatuses() []model.OrderStatus {
	return []model.OrderStatus{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
		model.OrderStatusCompleted,
	}
}

type Range struct {
	From time.Time
	To   time.Time
}

// ResolveRange fills missing bounds: To defaults to now, From to To minus
// DefaultWindow.
func ResolveRange(from, to *time.Time, now time.Time) Range {
	r := Range{To: now}
	if to != nil {
		r.To = *to
	}
	r.From = r.To.Add(-DefaultWindow)
	if from != nil {
		r.From = *from
	}
	return r
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

type PopularItem struct {
	MenuItemID    int64           `json:"menuItemId"`
	Name          string          `json:"name"`
	OrderCount    int64           `json:"orderCount"`
	TotalQuantity int64           `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type Report struct {
	TotalRevenue      decimal.Decimal             `json:"totalRevenue"`
	TotalOrders       int64                       `json:"totalOrders"`
	AverageOrderValue decimal.Decimal             `json:"averageOrderValue"`
	StatusBreakdown   map[model.OrderStatus]int64 `json:"statusBreakdown"`
	DailyRevenue      []DailyRevenue              `json:"dailyRevenue"`
	PopularItems      []PopularItem               `json:"popularItems"`
}

// Build aggregates orders that were already filtered to the wanted range.
// Items must be loaded for the popular item ranking. Days are bucketed in loc.
func Build(orders []model.Order, loc *time.Location, topN int) Report {
	if loc == nil {
		loc = time.UTC
	}
	if topN <= 0 {
		topN = DefaultTopItems
	}

	rep := Report{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		StatusBreakdown:   map[model.OrderStatus]int64{},
		DailyRevenue:      []DailyRevenue{},
		PopularItems:      []PopularItem{},
	}

	days := map[string]*DailyRevenue{}
	items := map[int64]*PopularItem{}

	for _, o := range orders {
		rep.StatusBreakdown[o.Status]++
		if !CountsTowardRevenue(o.Status) {
			continue
		}

		rep.TotalOrders++
		rep.TotalRevenue = rep.TotalRevenue.Add(o.Total)

		key := o.CreatedAt.In(loc).Format(dayLayout)
		d, ok := days[key]
		if !ok {
			d = &DailyRevenue{Date: key, Revenue: decimal.Zero}
			days[key] = d
		}
		d.Revenue = d.Revenue.Add(o.Total)
		d.Orders++

		for _, it := range o.Items {
			p, ok := items[it.MenuItemID]
			if !ok {
				p = &PopularItem{MenuItemID: it.MenuItemID, Name: it.Name, TotalRevenue: decimal.Zero}
				items[it.MenuItemID] = p
			}
			p.OrderCount++
			p.TotalQuantity += it.Quantity
			p.TotalRevenue = p.TotalRevenue.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
		}
	}

	if rep.TotalOrders > 0 {
		rep.AverageOrderValue = rep.TotalRevenue.Div(decimal.NewFromInt(rep.TotalOrders)).Round(2)
	}

	for _, d := range days {
		rep.DailyRevenue = append(rep.DailyRevenue, *d)
	}
	sort.Slice(rep.DailyRevenue, func(i, j int) bool {
		return rep.DailyRevenue[i].Date < rep.DailyRevenue[j].Date
	})

	for _, p := range items {
		rep.PopularItems = append(rep.PopularItems, *p)
	}
	sort.Slice(rep.PopularItems, func(i, j int) bool {
		a, b := rep.PopularItems[i], rep.PopularItems[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		if a.TotalQuantity != b.TotalQuantity {
			return a.TotalQuantity > b.TotalQuantity
		}
		return a.MenuItemID < b.MenuItemID
	})
	if len(rep.PopularItems) > topN {
		rep.PopularItems = rep.PopularItems[:topN]
	}

	return rep
}

// Today is the headline of the order dashboard.
type Today struct {
	Orders  int64           `json:"todayOrders"`
	Revenue decimal.Decimal `json:"todayRevenue"`
}

// SummarizeToday counts every order and sums the total of paid ones.
func SummarizeToday(orders []model.Order) Today {
	t := Today{Revenue: decimal.Zero}
	for _, o := range orders {
		t.Orders++
		if o.PaymentStatus == model.PaymentStatusPaid {
			t.Revenue = t.Revenue.Add(o.Total)
		}
	}
	return t
}
