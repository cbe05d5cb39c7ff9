package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"canteen/internal/domain/analytics"
	"canteen/internal/domain/lifecycle"
	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

const recentOrdersLimit = 10

type AdminOrderUsecase struct {
	orders   repo.OrderRepository
	users    repo.UserRepository
	audit    repo.AuditLogRepository
	clock    Clock
	log      *slog.Logger
	policy   lifecycle.Policy
	location *time.Location
	states   *orderTransitioner
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	audit repo.AuditLogRepository,
	events EventPublisher,
	clock Clock,
	log *slog.Logger,
	policy lifecycle.Policy,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		orders:   orders,
		users:    users,
		audit:    audit,
		clock:    clock,
		log:      log,
		policy:   policy,
		location: time.UTC,
		states:   &orderTransitioner{tx: tx, events: events, clock: clock, log: log},
	}
}

type AdminListOrdersInput struct {
	Status        string
	PaymentStatus string
	Search        string
	Page          int
	Limit         int
}

// 注文一覧（全利用者分）
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminListOrdersInput) (OrderListOutput, error) {
	f := repo.OrderListFilter{}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, err := lifecycle.ParseStatus(s)
		if err != nil {
			return OrderListOutput{}, lifecycleError(err)
		}
		f.Status = st
	}
	if ps := strings.TrimSpace(in.PaymentStatus); ps != "" {
		switch model.PaymentStatus(ps) {
		case model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusRefunded:
			f.PaymentStatus = model.PaymentStatus(ps)
		default:
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid paymentStatus")
		}
	}
	search := strings.TrimSpace(in.Search)
	if len(search) > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "search is too long")
	}
	f.Search = search
	f.Page, f.Limit = pageParams(in.Page, in.Limit, 20, 100)

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, storageError(err)
	}
	return toOrderListOutput(orders, total, f.Page, f.Limit), nil
}

type AdminUpdateOrderStatusInput struct {
	Status string
	Note   string
}

// ステータス更新（cancelled なら在庫戻し）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to, err := lifecycle.ParseStatus(in.Status)
	if err != nil {
		return OrderOutput{}, lifecycleError(err)
	}
	note := strings.TrimSpace(in.Note)
	if len([]rune(note)) > 500 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "note must be at most 500 characters")
	}

	action := model.AuditActionUpdateOrderStatus
	if to == model.OrderStatusCancelled {
		action = model.AuditActionCancelOrder
	}

	o, err := u.states.apply(ctx, statusChange{
		orderID: orderID,
		actor:   Actor{UserID: actorAdminUserID, Role: model.RoleAdmin},
		event:   lifecycle.Event{To: to, Note: note, Reason: note},
		policy:  u.policy,
		action:  action,
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", o.ID),
		slog.String("status", string(o.Status)),
		slog.Int64("actor_user_id", actorAdminUserID),
	)
	return toOrderOutput(o), nil
}

type OrderStatsOutput struct {
	TodayOrders   int64                       `json:"todayOrders"`
	TodayRevenue  json.Number                 `json:"todayRevenue"`
	PendingOrders int64                       `json:"pendingOrders"`
	ActiveOrders  int64                       `json:"activeOrders"`
	StatusCounts  map[model.OrderStatus]int64 `json:"statusCounts"`
	RecentOrders  []OrderOutput               `json:"recentOrders"`
}

// 今日の件数と支払済み売上、ステータス別件数、直近10件
func (u *AdminOrderUsecase) Stats(ctx context.Context) (OrderStatsOutput, error) {
	now := u.clock.Now().In(u.location)
	today, err := u.orders.ListBetween(ctx, analytics.StartOfDay(now), now)
	if err != nil {
		return OrderStatsOutput{}, storageError(err)
	}
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return OrderStatsOutput{}, storageError(err)
	}
	recent, _, err := u.orders.List(ctx, repo.OrderListFilter{Page: 1, Limit: recentOrdersLimit})
	if err != nil {
		return OrderStatsOutput{}, storageError(err)
	}

	sum := analytics.SummarizeToday(today)
	recentOut := make([]OrderOutput, 0, len(recent))
	for _, o := range recent {
		recentOut = append(recentOut, toOrderOutput(o))
	}

	return OrderStatsOutput{
		TodayOrders:   sum.Orders,
		TodayRevenue:  money(sum.Revenue),
		PendingOrders: counts[model.OrderStatusPending],
		ActiveOrders: counts[model.OrderStatusConfirmed] +
			counts[model.OrderStatusPreparing] +
			counts[model.OrderStatusReady],
		StatusCounts: counts,
		RecentOrders: recentOut,
	}, nil
}

type DailyRevenueOutput struct {
	Date    string      `json:"date"`
	Revenue json.Number `json:"revenue"`
	Orders  int64       `json:"orders"`
}

type PopularItemOutput struct {
	MenuItemID    int64       `json:"menuItemId"`
	Name          string      `json:"name"`
	OrderCount    int64       `json:"orderCount"`
	TotalQuantity int64       `json:"totalQuantity"`
	TotalRevenue  json.Number `json:"totalRevenue"`
}

type AnalyticsOutput struct {
	StartDate         time.Time                   `json:"startDate"`
	EndDate           time.Time                   `json:"endDate"`
	TotalRevenue      json.Number                 `json:"totalRevenue"`
	TotalOrders       int64                       `json:"totalOrders"`
	AverageOrderValue json.Number                 `json:"averageOrderValue"`
	TotalCustomers    int64                       `json:"totalCustomers"`
	StatusBreakdown   map[model.OrderStatus]int64 `json:"statusBreakdown"`
	DailyRevenue      []DailyRevenueOutput        `json:"dailyRevenue"`
	PopularItems      []PopularItemOutput         `json:"popularItems"`
}

// 期間未指定なら直近30日
func (u *AdminOrderUsecase) Analytics(ctx context.Context, from, to *time.Time) (AnalyticsOutput, error) {
	rng := analytics.ResolveRange(from, to, u.clock.Now())
	if rng.From.After(rng.To) {
		return AnalyticsOutput{}, NewHTTPError(http.StatusBadRequest, "startDate must be before endDate")
	}

	orders, err := u.orders.ListBetween(ctx, rng.From, rng.To)
	if err != nil {
		return AnalyticsOutput{}, storageError(err)
	}
	customers, err := u.users.CountByRole(ctx, model.RoleUser)
	if err != nil {
		return AnalyticsOutput{}, storageError(err)
	}

	rep := analytics.Build(orders, u.location, analytics.DefaultTopItems)

	daily := make([]DailyRevenueOutput, 0, len(rep.DailyRevenue))
	for _, d := range rep.DailyRevenue {
		daily = append(daily, DailyRevenueOutput{Date: d.Date, Revenue: money(d.Revenue), Orders: d.Orders})
	}
	popular := make([]PopularItemOutput, 0, len(rep.PopularItems))
	for _, p := range rep.PopularItems {
		popular = append(popular, PopularItemOutput{
			MenuItemID:    p.MenuItemID,
			Name:          p.Name,
			OrderCount:    p.OrderCount,
			TotalQuantity: p.TotalQuantity,
			TotalRevenue:  money(p.TotalRevenue),
		})
	}

	return AnalyticsOutput{
		StartDate:         rng.From,
		EndDate:           rng.To,
		TotalRevenue:      money(rep.TotalRevenue),
		TotalOrders:       rep.TotalOrders,
		AverageOrderValue: money(rep.AverageOrderValue),
		TotalCustomers:    customers,
		StatusBreakdown:   rep.StatusBreakdown,
		DailyRevenue:      daily,
		PopularItems:      popular,
	}, nil
}

type AuditLogListInput struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Logs  []model.AuditLog `json:"logs"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AdminOrderUsecase) AuditLogs(ctx context.Context, in AuditLogListInput) (AuditLogListOutput, error) {
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}
	page, limit := pageParams(in.Page, in.Limit, 50, 200)

	logs, total, err := u.audit.List(ctx, repo.AuditLogFilter{
		ActorUserID:  in.ActorUserID,
		Action:       model.AuditAction(strings.TrimSpace(in.Action)),
		ResourceType: model.AuditResourceType(strings.TrimSpace(in.ResourceType)),
		ResourceID:   in.ResourceID,
		From:         in.From,
		To:           in.To,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return AuditLogListOutput{}, storageError(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return AuditLogListOutput{Logs: logs, Total: total, Page: page, Limit: limit}, nil
}
