package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// applyPaginationAndSort applies limit/offset and a whitelisted sort column
// to a query. Unknown sort columns fall back to created_at to keep user
// input out of the ORDER BY clause.
func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder string, allowedColumns []string) *gorm.DB {
	column := "created_at"
	for _, allowed := range allowedColumns {
		if sortBy == allowed {
			column = sortBy
			break
		}
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
