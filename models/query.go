package models

import (
	"fmt"
	"strconv"
	"time"
)

// PluginNameColumn is the column name that turns cells into drill-down links.
// Matching is exact and case-sensitive.
const PluginNameColumn = "plugin_name"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	DB    string `json:"db" example:"q1-audit.db"`
	Query string `json:"query" example:"SELECT plugin_name, severity FROM vulnerabilities"`
}

// PluginQueryRequest is the body of POST /query_plugin.
type PluginQueryRequest struct {
	DB         string `json:"db" example:"q1-audit.db"`
	PluginName string `json:"plugin_name" example:"SSL Weak Cipher Suites Supported"`
}

// QueryResult is a column-aligned result set. Every row has len(Columns) cells.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// CellText renders a scalar cell for display. NULL renders empty and integral
// floats (JSON numbers) render without a fractional part.
func CellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(c, 10)
	case int:
		return strconv.Itoa(c)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.Format(time.RFC3339)
	default:
		return fmt.Sprint(c)
	}
}
