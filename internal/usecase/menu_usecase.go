package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

type MenuUsecase struct {
	tx        repo.TransactionManager
	menuRepo  repo.MenuItemRepository
	inventory repo.InventoryRepository
	clock     Clock
	log       *slog.Logger
}

func NewMenuUsecase(
	tx repo.TransactionManager,
	menuRepo repo.MenuItemRepository,
	inventory repo.InventoryRepository,
	clock Clock,
	log *slog.Logger,
) *MenuUsecase {
	return &MenuUsecase{tx: tx, menuRepo: menuRepo, inventory: inventory, clock: clock, log: log}
}

type MenuItemOutput struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description,omitempty"`
	Price             json.Number `json:"price"`
	DiscountPercent   int64       `json:"discountPercent"`
	FinalPrice        json.Number `json:"finalPrice"`
	IsAvailable       bool        `json:"isAvailable"`
	AvailableQuantity int64       `json:"availableQuantity"`
	PrepTime          int64       `json:"prepTime"`
	TotalOrders       int64       `json:"totalOrders"`
}

func toMenuItemOutput(m model.MenuItem) MenuItemOutput {
	return MenuItemOutput{
		ID:                m.ID,
		Name:              m.Name,
		Description:       m.Description,
		Price:             money(m.Price),
		DiscountPercent:   m.DiscountPercent,
		FinalPrice:        money(m.FinalPrice()),
		IsAvailable:       m.IsAvailable,
		AvailableQuantity: m.AvailableQuantity,
		PrepTime:          m.PrepTime,
		TotalOrders:       m.TotalOrders,
	}
}

// GET /menu の入力
type ListMenuInput struct {
	Page          int
	Limit         int
	Q             string
	AvailableOnly bool
}

type MenuListOutput struct {
	Items []MenuItemOutput `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *MenuUsecase) ListMenu(ctx context.Context, in ListMenuInput) (MenuListOutput, error) {
	q := strings.TrimSpace(in.Q)
	if len(q) > 100 {
		return MenuListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	page, limit := pageParams(in.Page, in.Limit, 20, 100)

	items, total, err := u.menuRepo.List(ctx, repo.MenuItemListQuery{
		Page:          page,
		Limit:         limit,
		Q:             q,
		AvailableOnly: in.AvailableOnly,
	})
	if err != nil {
		return MenuListOutput{}, storageError(err)
	}

	outs := make([]MenuItemOutput, 0, len(items))
	for _, m := range items {
		outs = append(outs, toMenuItemOutput(m))
	}
	return MenuListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

func (u *MenuUsecase) GetMenuItem(ctx context.Context, id int64) (MenuItemOutput, error) {
	if id <= 0 {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menu item id")
	}
	m, err := u.menuRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return MenuItemOutput{}, NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	if err != nil {
		return MenuItemOutput{}, storageError(err)
	}
	return toMenuItemOutput(m), nil
}

type AdminUpdateInventoryInput struct {
	AvailableQuantity int64
	IsAvailable       *bool
	Reason            string
}

// 在庫数の設定（補充・棚卸し）。差分を台帳に、変更を監査ログに残す
func (u *MenuUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, menuItemID int64, in AdminUpdateInventoryInput) (MenuItemOutput, error) {
	if adminUserID <= 0 {
		return MenuItemOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if menuItemID <= 0 {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menu item id")
	}
	if in.AvailableQuantity < 0 {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "availableQuantity must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = model.AdjustmentReasonRestock
	}
	if len([]rune(reason)) > 255 {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "reason must be at most 255 characters")
	}

	var out model.MenuItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前（before）
		m, err := r.MenuItems().FindByID(ctx, menuItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		if err != nil {
			return storageError(err)
		}

		if err := r.Inventory().SetStock(ctx, menuItemID, in.AvailableQuantity, in.IsAvailable); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "menu item not found")
			}
			return storageError(err)
		}

		if delta := in.AvailableQuantity - m.AvailableQuantity; delta != 0 {
			if err := r.Inventory().RecordAdjustment(ctx, model.InventoryAdjustment{
				MenuItemID:  menuItemID,
				ActorUserID: adminUserID,
				Delta:       delta,
				Reason:      reason,
			}); err != nil {
				return storageError(err)
			}
		}

		after := m
		after.AvailableQuantity = in.AvailableQuantity
		if in.IsAvailable != nil {
			after.IsAvailable = *in.IsAvailable
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceMenuItem,
			ResourceID:   menuItemID,
			BeforeJSON:   fmt.Sprintf(`{"availableQuantity":%d,"isAvailable":%t}`, m.AvailableQuantity, m.IsAvailable),
			AfterJSON:    fmt.Sprintf(`{"availableQuantity":%d,"isAvailable":%t}`, after.AvailableQuantity, after.IsAvailable),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return storageError(err)
		}

		out = after
		return nil
	})
	if err != nil {
		return MenuItemOutput{}, storageError(err)
	}

	u.log.InfoContext(ctx, "inventory updated",
		slog.Int64("menu_item_id", menuItemID),
		slog.Int64("available_quantity", out.AvailableQuantity),
		slog.Int64("actor_user_id", adminUserID),
	)
	return toMenuItemOutput(out), nil
}

// 在庫台帳（新しい順）
func (u *MenuUsecase) ListAdjustments(ctx context.Context, menuItemID int64, limit int) ([]model.InventoryAdjustment, error) {
	if menuItemID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid menu item id")
	}
	if _, err := u.menuRepo.FindByID(ctx, menuItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		return nil, storageError(err)
	}
	_, limit = pageParams(1, limit, 50, 200)

	adjs, err := u.inventory.ListAdjustments(ctx, menuItemID, limit)
	if err != nil {
		return nil, storageError(err)
	}
	if adjs == nil {
		adjs = []model.InventoryAdjustment{}
	}
	return adjs, nil
}
