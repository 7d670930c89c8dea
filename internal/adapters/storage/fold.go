package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// FoldFunc is the SQL function that lower-cases text with Go's Unicode rules.
// SQLite's own LOWER only folds ASCII, so "JOSÉ" would never match "josé".
const FoldFunc = "fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldFunc, 1, fold)
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	}
	return args[0], nil
}

// FoldEq renders a case-insensitive equality test for column.
func FoldEq(column string) string {
	return FoldFunc + "(" + column + ") = " + FoldFunc + "(?)"
}
