package model

// マイグレーション対象
func All() []any {
	return []any{
		&User{},
		&MenuItem{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&InventoryAdjustment{},
		&AuditLog{},
	}
}
