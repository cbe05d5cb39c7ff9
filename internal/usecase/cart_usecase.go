package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
// 変更はすべてTx内で行い、最後に合計を再計算する（後勝ち）。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

// price は追加時点の単価
type CartItemOutput struct {
	ID                  int64       `json:"id"`
	MenuItemID          int64       `json:"menuItemId"`
	Name                string      `json:"name"`
	UnitPrice           json.Number `json:"unitPrice"`
	Quantity            int64       `json:"quantity"`
	LineTotal           json.Number `json:"lineTotal"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
	IsAvailable         bool        `json:"isAvailable"`
}

type CartOutput struct {
	ID         int64            `json:"id"`
	Items      []CartItemOutput `json:"items"`
	TotalItems int64            `json:"totalItems"`
	Subtotal   json.Number      `json:"subtotal"`
}

type AddCartItemInput struct {
	MenuItemID          int64
	Quantity            int64
	SpecialInstructions string
}

type UpdateCartItemInput struct {
	Quantity            int64
	SpecialInstructions *string
}

// カート取得（無ければ作って空を返す）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return storageError(err)
		}
		out, err = buildCart(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return out, nil
}

// カートに追加（同じメニューは数量加算）
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartItemInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.MenuItemID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menuItemId")
	}
	if in.Quantity < 1 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
	}
	instructions := strings.TrimSpace(in.SpecialInstructions)
	if len([]rune(instructions)) > model.MaxSpecialInstructionsLen {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "specialInstructions must be at most 200 characters")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		m, err := r.MenuItems().FindByID(ctx, in.MenuItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		if err != nil {
			return storageError(err)
		}
		if !m.IsAvailable {
			return NewKindError(http.StatusBadRequest, KindItemUnavail, fmt.Sprintf("%s is not available", m.Name))
		}

		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return storageError(err)
		}

		//既存数量と合わせて在庫を超えないか
		var existing int64
		ci, err := r.CartItems().FindByCartAndMenuItem(ctx, cart.ID, m.ID)
		switch {
		case err == nil:
			existing = ci.Quantity
		case !errors.Is(err, repo.ErrNotFound):
			return storageError(err)
		}
		if existing+in.Quantity > m.AvailableQuantity {
			return insufficientStock(m)
		}

		if err := r.CartItems().UpsertByCartAndMenuItem(ctx, cart.ID, m.ID, in.Quantity, m.FinalPrice(), instructions); err != nil {
			return storageError(err)
		}

		out, err = recalc(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return out, nil
}

// 数量の変更。0なら明細を削除する
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, menuItemID int64, in UpdateCartItemInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if menuItemID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menuItemId")
	}
	if in.Quantity < 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must not be negative")
	}
	if in.SpecialInstructions != nil {
		s := strings.TrimSpace(*in.SpecialInstructions)
		if len([]rune(s)) > model.MaxSpecialInstructionsLen {
			return CartOutput{}, NewHTTPError(http.StatusBadRequest, "specialInstructions must be at most 200 characters")
		}
		in.SpecialInstructions = &s
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, ci, err := findLine(ctx, r, userID, menuItemID)
		if err != nil {
			return err
		}

		if in.Quantity == 0 {
			if err := r.CartItems().DeleteByID(ctx, ci.ID); err != nil {
				return storageError(err)
			}
		} else {
			m, err := r.MenuItems().FindByID(ctx, menuItemID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewKindError(http.StatusBadRequest, KindItemUnavail, fmt.Sprintf("menu item %d is not available", menuItemID))
			}
			if err != nil {
				return storageError(err)
			}
			if !m.IsAvailable {
				return NewKindError(http.StatusBadRequest, KindItemUnavail, fmt.Sprintf("%s is not available", m.Name))
			}
			if in.Quantity > m.AvailableQuantity {
				return insufficientStock(m)
			}
			if err := r.CartItems().UpdateQuantity(ctx, ci.ID, in.Quantity, in.SpecialInstructions); err != nil {
				return storageError(err)
			}
		}

		out, err = recalc(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return out, nil
}

func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, menuItemID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if menuItemID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menuItemId")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, ci, err := findLine(ctx, r, userID, menuItemID)
		if err != nil {
			return err
		}
		if err := r.CartItems().DeleteByID(ctx, ci.ID); err != nil {
			return storageError(err)
		}
		out, err = recalc(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return out, nil
}

// 空にするだけ（カートは残す）
func (u *CartUsecase) Clear(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return storageError(err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return storageError(err)
		}
		out = CartOutput{ID: cart.ID, Items: []CartItemOutput{}, Subtotal: money(decimal.Zero)}
		return nil
	})
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return out, nil
}

func findLine(ctx context.Context, r repo.TxRepos, userID, menuItemID int64) (model.Cart, model.CartItem, error) {
	cart, err := r.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "item not in cart")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, storageError(err)
	}
	ci, err := r.CartItems().FindByCartAndMenuItem(ctx, cart.ID, menuItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "item not in cart")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, storageError(err)
	}
	return cart, ci, nil
}

// 明細から合計を出し直して保存する
func recalc(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartOutput, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	totalItems, subtotal := cartTotals(items)
	if err := r.Carts().UpdateTotals(ctx, cart.ID, totalItems, subtotal); err != nil {
		return CartOutput{}, storageError(err)
	}
	cart.TotalItems = totalItems
	cart.Subtotal = subtotal
	return toCartOutput(ctx, r, cart, items)
}

func buildCart(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartOutput, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, storageError(err)
	}
	return toCartOutput(ctx, r, cart, items)
}

func cartTotals(items []model.CartItem) (int64, decimal.Decimal) {
	var n int64
	sum := decimal.Zero
	for _, it := range items {
		n += it.Quantity
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return n, sum.Round(2)
}

func toCartOutput(ctx context.Context, r repo.TxRepos, cart model.Cart, items []model.CartItem) (CartOutput, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuItemID)
	}
	menu := map[int64]model.MenuItem{}
	if len(ids) > 0 {
		var err error
		menu, err = r.MenuItems().FindByIDs(ctx, ids)
		if err != nil {
			return CartOutput{}, storageError(err)
		}
	}

	outs := make([]CartItemOutput, 0, len(items))
	for _, it := range items {
		m, ok := menu[it.MenuItemID]
		outs = append(outs, CartItemOutput{
			ID:                  it.ID,
			MenuItemID:          it.MenuItemID,
			Name:                m.Name,
			UnitPrice:           money(it.UnitPrice),
			Quantity:            it.Quantity,
			LineTotal:           money(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))),
			SpecialInstructions: it.SpecialInstructions,
			IsAvailable:         ok && m.IsAvailable,
		})
	}
	return CartOutput{
		ID:         cart.ID,
		Items:      outs,
		TotalItems: cart.TotalItems,
		Subtotal:   money(cart.Subtotal),
	}, nil
}
