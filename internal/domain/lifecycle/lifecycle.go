// Package lifecycle is the order state machine.
//
// Transition and Rate are pure: they take an order and return the changed
// copy plus the side effects the caller has to carry out. Persistence and
// inventory are not touched here.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"canteen/internal/domain/model"
)

var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyTerminal   = errors.New("order is already completed or cancelled")
	ErrNotCompleted      = errors.New("only completed orders can be rated")
	ErrRatingOutOfRange  = errors.New("rating must be between 1 and 5")
)

const (
	MinRating = 1
	MaxRating = 5
)

// Policy decides which non-terminal jumps are accepted.
type Policy int

const (
	// Strict allows only the next step of the flow or cancellation.
	Strict Policy = iota
	// Permissive accepts any other enumerated status from a non-terminal one.
	Permissive
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "permissive":
		return Permissive, nil
	}
	return Strict, fmt.Errorf("unknown transition policy %q", s)
}

func (p Policy) String() string {
	if p == Permissive {
		return "permissive"
	}
	return "strict"
}

type Event struct {
	To     model.OrderStatus
	Note   string
	Reason string
}

type EffectKind string

const (
	EffectAppendHistory    EffectKind = "append_history"
	EffectSetCompletedAt   EffectKind = "set_completed_at"
	EffectMarkPaid         EffectKind = "mark_paid"
	EffectSetCancelledAt   EffectKind = "set_cancelled_at"
	EffectReleaseInventory EffectKind = "release_inventory"
)

// Effect is one consequence of a transition. Only ReleaseInventory needs
// work outside the order row; the rest are already applied to the returned
// order and are listed so callers can log or audit them.
type Effect struct {
	Kind       EffectKind
	MenuItemID int64
	Quantity   int64
}

func ParseStatus(s string) (model.OrderStatus, error) {
	st := model.OrderStatus(strings.TrimSpace(s))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func next(s model.OrderStatus) (model.OrderStatus, bool) {
	for i, st := range model.OrderStatusFlow {
		if st == s && i+1 < len(model.OrderStatusFlow) {
			return model.OrderStatusFlow[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is accepted under p.
func CanTransition(from, to model.OrderStatus, p Policy) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if from.Terminal() {
		return ErrAlreadyTerminal
	}
	if to == model.OrderStatusCancelled {
		return nil
	}
	if p == Permissive {
		if from == to {
			return fmt.Errorf("%w: already %s", ErrIllegalTransition, from)
		}
		return nil
	}
	if n, ok := next(from); ok && n == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func Transition(o model.Order, ev Event, now time.Time, p Policy) (model.Order, []Effect, error) {
	if err := CanTransition(o.Status, ev.To, p); err != nil {
		return o, nil, err
	}

	out := o
	out.Status = ev.To
	out.UpdatedAt = now

	note := ev.Note
	if note == "" && ev.To == model.OrderStatusCancelled {
		note = ev.Reason
	}

	// 元の履歴スライスは共有しない
	out.StatusHistory = make([]model.OrderStatusHistory, 0, len(o.StatusHistory)+1)
	out.StatusHistory = append(out.StatusHistory, o.StatusHistory...)
	out.StatusHistory = append(out.StatusHistory, model.OrderStatusHistory{
		OrderID:   o.ID,
		Status:    ev.To,
		Timestamp: now,
		Note:      note,
	})

	effects := []Effect{{Kind: EffectAppendHistory}}

	switch ev.To {
	case model.OrderStatusCompleted:
		if out.CompletedAt == nil {
			t := now
			out.CompletedAt = &t
			effects = append(effects, Effect{Kind: EffectSetCompletedAt})

			if !o.CreatedAt.IsZero() {
				mins := int64(t.Sub(o.CreatedAt) / time.Minute)
				if mins < 0 {
					mins = 0
				}
				out.ActualTime = &mins
			}
		}
		if out.PaymentStatus != model.PaymentStatusPaid {
			out.PaymentStatus = model.PaymentStatusPaid
			effects = append(effects, Effect{Kind: EffectMarkPaid})
		}

	case model.OrderStatusCancelled:
		if out.CancelledAt == nil {
			t := now
			out.CancelledAt = &t
			effects = append(effects, Effect{Kind: EffectSetCancelledAt})
		}
		reason := strings.TrimSpace(ev.Reason)
		if reason == "" {
			reason = strings.TrimSpace(ev.Note)
		}
		out.CancelReason = reason

		// 調理済みかどうかに関係なく注文数をそのまま戻す
		for _, it := range o.Items {
			effects = append(effects, Effect{
				Kind:       EffectReleaseInventory,
				MenuItemID: it.MenuItemID,
				Quantity:   it.Quantity,
			})
		}
	}

	return out, effects, nil
}

// Cancel is Transition to cancelled with a reason.
func Cancel(o model.Order, reason string, now time.Time) (model.Order, []Effect, error) {
	return Transition(o, Event{To: model.OrderStatusCancelled, Reason: reason}, now, Strict)
}

// Rate sets the rating of a completed order, replacing any previous one.
func Rate(o model.Order, value int64, comment string, now time.Time) (model.Order, error) {
	if o.Status != model.OrderStatusCompleted {
		return o, ErrNotCompleted
	}
	if value < MinRating || value > MaxRating {
		return o, ErrRatingOutOfRange
	}

	out := o
	t := now
	out.Rating = model.Rating{
		Value:   value,
		Comment: strings.TrimSpace(comment),
		RatedAt: &t,
	}
	out.UpdatedAt = now
	return out, nil
}

// Releases picks the inventory credits out of an effect list.
func Releases(effects []Effect) []Effect {
	var out []Effect
	for _, e := range effects {
		if e.Kind == EffectReleaseInventory {
			out = append(out, e)
		}
	}
	return out
}
