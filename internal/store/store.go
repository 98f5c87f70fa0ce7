// Package store implements the persistence layer: one store per entity
// over database/sql, with multi-row mutations wrapped in transactions.
// Reads filter soft-deleted rows by default; callers that need inactive
// rows use the explicit *All variants.
package store

import "strings"

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The modernc driver exposes these only through the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const dateLayout = "2006-01-02"
