package models

import (
	"database/sql"
)

// NullString is a helper function to create a sql.NullString from a string.
// If the input string is empty, it returns a NullString with Valid set to false.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
