package repository

import (
	"context"
	"errors"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cart と CartItem の両方を実装する
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	db := r.db.WithContext(ctx)

	var cart model.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, err
	}

	// 無ければ作る。同時作成に負けた側は何もせず読み直す
	newCart := model.Cart{UserID: userID, Subtotal: decimal.Zero}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&newCart).Error; err != nil {
		return model.Cart{}, translate(err)
	}
	if newCart.ID != 0 {
		return newCart, nil
	}

	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// 合計の再計算結果を保存
func (r *CartGormRepository) UpdateTotals(ctx context.Context, cartID int64, totalItems int64, subtotal decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"total_items": totalItems,
			"subtotal":    subtotal.Round(2),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除して合計を0に戻す
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//cart_itemsを全削除
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Cart{}).
			Where("id = ?", cartID).
			Updates(map[string]any{"total_items": 0, "subtotal": decimal.Zero})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

func (r *CartGormRepository) FindByCartAndMenuItem(ctx context.Context, cartID int64, menuItemID int64) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND menu_item_id = ?", cartID, menuItemID).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, translate(err)
	}
	return item, nil
}

// 同一メニューは数量加算
func (r *CartGormRepository) UpsertByCartAndMenuItem(
	ctx context.Context,
	cartID int64,
	menuItemID int64,
	addQty int64,
	unitPrice decimal.Decimal,
	instructions string,
) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	instructions = strings.TrimSpace(instructions)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND menu_item_id = ?", cartID, menuItemID).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			updates := map[string]any{"quantity": item.Quantity + addQty}
			if instructions != "" {
				updates["special_instructions"] = instructions
			}

			res := tx.Model(&model.CartItem{}).Where("id = ?", item.ID).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		newItem := model.CartItem{
			CartID:              cartID,
			MenuItemID:          menuItemID,
			Quantity:            addQty,
			UnitPrice:           unitPrice.Round(2),
			SpecialInstructions: instructions,
		}
		return translate(tx.Create(&newItem).Error)
	})
}

// 明細の数量を更新。instructions が nil なら特記事項は変えない。
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64, instructions *string) error {
	updates := map[string]any{"quantity": qty}
	if instructions != nil {
		updates["special_instructions"] = strings.TrimSpace(*instructions)
	}

	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
