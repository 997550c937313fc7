package option

import (
	"appforge-controlplane/pkg/db/pagination"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm query before it is executed.
type QueryOption func(*gorm.DB) *gorm.DB

func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		limit := p.Limit
		if limit <= 0 {
			limit = 10
		}
		tx = tx.Limit(limit)

		if p.Cursor != "" {
			cursor, err := pagination.DecodeCursor(p.Cursor)
			if err == nil && cursor.ID != "" {
				tx = tx.Where("id > ?", cursor.ID)
			}
		}

		return tx.Order("id ASC")
	}
}

func OrderBy(clause string) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(clause)
	}
}

func Where(query any, args ...any) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(query, args...)
	}
}
