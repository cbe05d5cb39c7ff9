package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"canteen/internal/domain/event"
	"canteen/internal/domain/lifecycle"
	"canteen/internal/domain/model"
	"canteen/internal/domain/pricing"
	repo "canteen/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultNumberAttempts = 3
	maxCancelReasonLen    = 500
	maxRatingCommentLen   = 500
)

// 注文まわりの設定（configから作る）
type OrderSettings struct {
	Pricing        pricing.Calculator
	TimeOffsets    pricing.TimeOffsets
	Policy         lifecycle.Policy
	NumberAttempts int
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	numbers  OrderNumberGenerator
	events   EventPublisher
	clock    Clock
	log      *slog.Logger
	settings OrderSettings
	states   *orderTransitioner
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	numbers OrderNumberGenerator,
	events EventPublisher,
	clock Clock,
	log *slog.Logger,
	settings OrderSettings,
) *OrderUsecase {
	if settings.NumberAttempts <= 0 {
		settings.NumberAttempts = defaultNumberAttempts
	}
	return &OrderUsecase{
		tx:       tx,
		orders:   orders,
		numbers:  numbers,
		events:   events,
		clock:    clock,
		log:      log,
		settings: settings,
		states:   &orderTransitioner{tx: tx, events: events, clock: clock, log: log},
	}
}

type PlaceOrderInput struct {
	PaymentMethod   string
	DeliveryType    string
	DeliveryAddress *model.DeliveryAddress
	CustomerNotes   string
}

type placeOrder struct {
	paymentMethod model.PaymentMethod
	deliveryType  model.DeliveryType
	address       model.DeliveryAddress
	notes         string
}

func (in PlaceOrderInput) normalize() (placeOrder, error) {
	pm := model.PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if !pm.Valid() {
		return placeOrder{}, NewHTTPError(http.StatusBadRequest, "invalid paymentMethod")
	}
	dt := model.DeliveryType(strings.TrimSpace(in.DeliveryType))
	if !dt.Valid() {
		return placeOrder{}, NewHTTPError(http.StatusBadRequest, "invalid deliveryType")
	}

	notes := strings.TrimSpace(in.CustomerNotes)
	if len([]rune(notes)) > model.MaxCustomerNotesLen {
		return placeOrder{}, NewHTTPError(http.StatusBadRequest, "customerNotes must be at most 500 characters")
	}

	//住所は配達のときだけ（必須）
	var addr model.DeliveryAddress
	if dt == model.DeliveryTypeDelivery {
		if in.DeliveryAddress == nil || strings.TrimSpace(in.DeliveryAddress.Building) == "" {
			return placeOrder{}, NewHTTPError(http.StatusBadRequest, "deliveryAddress.building is required for delivery")
		}
		addr = model.DeliveryAddress{
			Building:     strings.TrimSpace(in.DeliveryAddress.Building),
			Room:         strings.TrimSpace(in.DeliveryAddress.Room),
			Landmark:     strings.TrimSpace(in.DeliveryAddress.Landmark),
			Instructions: strings.TrimSpace(in.DeliveryAddress.Instructions),
		}
	}

	return placeOrder{paymentMethod: pm, deliveryType: dt, address: addr, notes: notes}, nil
}

// PlaceOrder turns the caller's cart into an order in one transaction.
// A colliding order number rolls everything back and the whole attempt is
// retried with a fresh number.
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	req, err := in.normalize()
	if err != nil {
		return OrderOutput{}, err
	}

	var created model.Order
	for attempt := 1; ; attempt++ {
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			o, err := u.placeInTx(ctx, r, userID, req)
			if err != nil {
				return err
			}
			created = o
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, repo.ErrRollbackFailed) || !errors.Is(err, repo.ErrDuplicate) {
			return OrderOutput{}, storageError(err)
		}
		if attempt >= u.settings.NumberAttempts {
			u.log.ErrorContext(ctx, "order number collisions exhausted retries",
				slog.Int64("user_id", userID),
				slog.Int("attempts", attempt),
			)
			return OrderOutput{}, NewKindError(http.StatusConflict, KindDuplicateOrder, "could not allocate an order number, please retry")
		}
		u.log.WarnContext(ctx, "order number collision, retrying",
			slog.Int64("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}

	u.log.InfoContext(ctx, "order placed",
		slog.Int64("order_id", created.ID),
		slog.String("order_number", created.OrderNumber),
		slog.Int64("user_id", userID),
		slog.String("total", created.Total.StringFixed(2)),
	)
	publish(ctx, u.events, u.log, event.FromOrder(event.OrderCreated, created, created.CreatedAt))

	return toOrderOutput(created), nil
}

func (u *OrderUsecase) placeInTx(ctx context.Context, r repo.TxRepos, userID int64, req placeOrder) (model.Order, error) {
	cart, err := r.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewKindError(http.StatusBadRequest, KindEmptyCart, "cart is empty")
	}
	if err != nil {
		return model.Order{}, storageError(err)
	}

	lines, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return model.Order{}, storageError(err)
	}
	if len(lines) == 0 {
		return model.Order{}, NewKindError(http.StatusBadRequest, KindEmptyCart, "cart is empty")
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	menu, err := r.MenuItems().FindByIDs(ctx, ids)
	if err != nil {
		return model.Order{}, storageError(err)
	}

	//在庫を減らす前に全行チェック
	items := make([]model.OrderItem, 0, len(lines))
	priceLines := make([]pricing.Line, 0, len(lines))
	prepTimes := make([]int64, 0, len(lines))
	for _, l := range lines {
		m, ok := menu[l.MenuItemID]
		if !ok || !m.IsAvailable {
			name := m.Name
			if name == "" {
				name = fmt.Sprintf("menu item %d", l.MenuItemID)
			}
			return model.Order{}, NewKindError(http.StatusBadRequest, KindItemUnavail, fmt.Sprintf("%s is not available", name))
		}
		if m.AvailableQuantity < l.Quantity {
			return model.Order{}, insufficientStock(m)
		}

		//スナップショット（価格はカート追加時の単価）
		items = append(items, model.OrderItem{
			MenuItemID:          m.ID,
			Name:                m.Name,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			SpecialInstructions: l.SpecialInstructions,
		})
		priceLines = append(priceLines, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
		prepTimes = append(prepTimes, m.PrepTime)
	}

	totals := u.settings.Pricing.Calculate(priceLines, req.deliveryType, decimal.Zero)
	now := u.clock.Now()

	order := model.Order{
		OrderNumber:     u.numbers.Generate(),
		UserID:          userID,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		DeliveryFee:     totals.DeliveryFee,
		Discount:        totals.Discount,
		Total:           totals.Total,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		PaymentMethod:   req.paymentMethod,
		DeliveryType:    req.deliveryType,
		DeliveryAddress: req.address,
		EstimatedTime:   pricing.EstimateMinutes(prepTimes, req.deliveryType, u.settings.TimeOffsets),
		CustomerNotes:   req.notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	//番号衝突は ErrDuplicate のまま返して外側で再試行
	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return model.Order{}, err
	}
	order.ID = orderID

	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return model.Order{}, storageError(err)
	}
	for i := range items {
		items[i].OrderID = orderID
	}

	first := model.OrderStatusHistory{
		OrderID:   orderID,
		Status:    model.OrderStatusPending,
		Timestamp: now,
		Note:      "Order placed",
	}
	if err := r.StatusHistory().Append(ctx, first); err != nil {
		return model.Order{}, storageError(err)
	}

	for _, it := range items {
		err := r.Inventory().Reserve(ctx, it.MenuItemID, it.Quantity)
		if errors.Is(err, repo.ErrInsufficientStock) {
			return model.Order{}, reserveRejected(ctx, r, menu[it.MenuItemID])
		}
		if err != nil {
			return model.Order{}, storageError(err)
		}
		if err := r.Inventory().RecordAdjustment(ctx, model.InventoryAdjustment{
			MenuItemID:  it.MenuItemID,
			OrderID:     orderID,
			ActorUserID: userID,
			Delta:       -it.Quantity,
			Reason:      model.AdjustmentReasonOrderPlaced,
		}); err != nil {
			return model.Order{}, storageError(err)
		}
	}

	if err := r.Carts().Clear(ctx, cart.ID); err != nil {
		return model.Order{}, storageError(err)
	}

	order.Items = items
	order.StatusHistory = []model.OrderStatusHistory{first}
	return order, nil
}

func insufficientStock(m model.MenuItem) error {
	return NewKindError(http.StatusBadRequest, KindInsufficient,
		fmt.Sprintf("Only %d %s left", m.AvailableQuantity, m.Name))
}

// 事前チェックの後に他の注文が在庫を取った。最新の値で返す
func reserveRejected(ctx context.Context, r repo.TxRepos, m model.MenuItem) error {
	cur, err := r.MenuItems().FindByID(ctx, m.ID)
	if err != nil {
		return NewKindError(http.StatusBadRequest, KindInsufficient, fmt.Sprintf("Not enough %s left", m.Name))
	}
	if !cur.IsAvailable {
		return NewKindError(http.StatusBadRequest, KindItemUnavail, fmt.Sprintf("%s is not available", cur.Name))
	}
	return insufficientStock(cur)
}

type ListOrdersInput struct {
	Status string
	Page   int
	Limit  int
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, in ListOrdersInput) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	f := repo.OrderListFilter{UserID: &userID}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, err := lifecycle.ParseStatus(s)
		if err != nil {
			return OrderListOutput{}, lifecycleError(err)
		}
		f.Status = st
	}
	f.Page, f.Limit = pageParams(in.Page, in.Limit, 10, 100)

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, storageError(err)
	}
	return toOrderListOutput(orders, total, f.Page, f.Limit), nil
}

// 本人か管理者だけ
func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, storageError(err)
	}
	if err := ownerOrAdmin(actor, o); err != nil {
		return OrderOutput{}, err
	}
	return toOrderOutput(o), nil
}

// Cancel cancels the order for its owner or an admin and credits the
// ordered quantities back to inventory.
func (u *OrderUsecase) Cancel(ctx context.Context, actor Actor, orderID int64, reason string) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > maxCancelReasonLen {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "reason must be at most 500 characters")
	}

	o, err := u.states.apply(ctx, statusChange{
		orderID: orderID,
		actor:   actor,
		event: lifecycle.Event{
			To:     model.OrderStatusCancelled,
			Note:   reason,
			Reason: reason,
		},
		policy:    u.settings.Policy,
		authorize: func(o model.Order) error { return ownerOrAdmin(actor, o) },
		action:    model.AuditActionCancelOrder,
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.InfoContext(ctx, "order cancelled",
		slog.Int64("order_id", o.ID),
		slog.Int64("actor_user_id", actor.UserID),
	)
	return toOrderOutput(o), nil
}

type RateOrderInput struct {
	Rating  int64
	Comment string
}

// 評価は本人だけ。completed以外は NotCompleted
func (u *OrderUsecase) Rate(ctx context.Context, actor Actor, orderID int64, in RateOrderInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	if len([]rune(strings.TrimSpace(in.Comment))) > maxRatingCommentLen {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "comment must be at most 500 characters")
	}

	now := u.clock.Now()
	var rated model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return storageError(err)
		}
		if o.UserID != actor.UserID {
			return NewHTTPError(http.StatusForbidden, "only the customer can rate this order")
		}

		next, err := lifecycle.Rate(o, in.Rating, in.Comment, now)
		if err != nil {
			return lifecycleError(err)
		}
		if err := r.Orders().UpdateRating(ctx, o.ID, next.Rating); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "order was updated concurrently, reload and retry")
			}
			return storageError(err)
		}
		rated = next
		return nil
	})
	if err != nil {
		return OrderOutput{}, storageError(err)
	}

	ev := event.FromOrder(event.OrderRated, rated, now)
	ev.ActorUserID = actor.UserID
	publish(ctx, u.events, u.log, ev)

	return toOrderOutput(rated), nil
}

func ownerOrAdmin(actor Actor, o model.Order) error {
	if actor.IsAdmin() || (actor.UserID > 0 && o.UserID == actor.UserID) {
		return nil
	}
	return NewHTTPError(http.StatusForbidden, "forbidden")
}

// ページ番号と件数を正規化
func pageParams(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
