package option

import (
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db/pagination"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm query before execution.
type QueryOption func(*gorm.DB) *gorm.DB

type QuerySortBy struct {
	Field   string
	OrderBy string
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		field := sort.Field
		if field == "" {
			field = "created_at"
		}
		order := sort.OrderBy
		if order == "" {
			order = "ASC"
		}
		return tx.Order(field + " " + order)
	}
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}

func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		limit := p.Limit
		if limit <= 0 {
			limit = 10
		}
		tx = tx.Limit(limit)

		if p.Cursor != "" {
			cursor, err := pagination.DecodeCursor(p.Cursor)
			if err == nil && cursor.CreatedAt != "" {
				tx = tx.Where("created_at > ?", cursor.CreatedAt)
			}
		}

		return tx
	}
}
