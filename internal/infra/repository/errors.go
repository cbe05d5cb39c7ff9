package repository

import (
	"errors"
	"fmt"
	"strings"

	repo "canteen/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgres unique_violation
const pgUniqueViolation = "23505"

// translate はドライバ由来のエラーをrepositoryのエラーにそろえる。
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("%w: %v", repo.ErrDuplicate, err)
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	// TranslateError なしで開いたsqlite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizePage(page, limit, def, max int) (int, int) {
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
