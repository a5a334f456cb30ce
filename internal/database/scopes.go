package database

import (
	"math"
	"strings"

	"gorm.io/gorm"
)

// likeEscape is portable across MySQL, Postgres and SQLite
const likeEscape = "!"

// Paginate applies a zero-based page window to a GORM query. A window whose
// offset does not fit in an int matches no rows.
func Paginate(pageIndex, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageIndex < 0 || pageSize <= 0 {
			return db
		}
		if pageIndex > math.MaxInt/pageSize {
			return db.Where("1 = 0")
		}
		return db.Offset(pageIndex * pageSize).Limit(pageSize)
	}
}

// ForOrganization restricts a query on the given table to one organization
func ForOrganization(table string, organizationID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".organization_id = ?", organizationID)
	}
}

// ContainsText matches rows where any of the columns contains text,
// case-insensitively. Blank text leaves the query untouched.
func ContainsText(text string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		text = strings.TrimSpace(text)
		if text == "" || len(columns) == 0 {
			return db
		}

		pattern := "%" + EscapeLike(strings.ToLower(text)) + "%"
		clauses := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, column := range columns {
			clauses[i] = "LOWER(" + column + ") LIKE ? ESCAPE '" + likeEscape + "'"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// EscapeLike escapes LIKE wildcards so user input matches literally
func EscapeLike(s string) string {
	replacer := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return replacer.Replace(s)
}
