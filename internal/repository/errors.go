package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反（注文番号の衝突など）
	ErrDuplicate = errors.New("duplicate key")

	// 条件付き更新で0件（他の更新に負けた）
	ErrConflict = errors.New("concurrent update")

	// 条件付き減算で0件（在庫不足・販売停止）
	ErrInsufficientStock = errors.New("insufficient stock")

	// ロールバック失敗。途中まで書いた行が残っている可能性がある
	ErrRollbackFailed = errors.New("transaction rollback failed")
)
