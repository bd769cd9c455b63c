package models

import (
	"fmt"
	"strconv"
	"strings"
)

// PluginDetailColumns is the fixed column order returned by POST /query_plugin.
var PluginDetailColumns = []string{
	"plugin_id", "plugin_name", "severity", "host", "description", "synopsis", "see_also", "plugin_output",
}

// PluginDetail is one (finding x affected host) row of a drill-down.
// All rows of one drill-down share every field except Host.
type PluginDetail struct {
	PluginID    int64    `json:"plugin_id"`
	Name        string   `json:"plugin_name"`
	Severity    Severity `json:"severity"`
	Host        string   `json:"host"`
	Description string   `json:"description"`
	Synopsis    string   `json:"synopsis"`
	SeeAlso     string   `json:"see_also"`
	Output      string   `json:"plugin_output"`
}

// Row returns d in PluginDetailColumns order.
func (d PluginDetail) Row() []any {
	return []any{d.PluginID, d.Name, int(d.Severity), d.Host, d.Description, d.Synopsis, d.SeeAlso, d.Output}
}

// DecodePluginDetailRow validates arity and decodes a positional detail tuple.
func DecodePluginDetailRow(row []any) (PluginDetail, error) {
	var d PluginDetail
	if len(row) != len(PluginDetailColumns) {
		return d, fmt.Errorf("plugin detail row has %d fields, want %d", len(row), len(PluginDetailColumns))
	}
	id, err := pluginIDFromCell(row[0])
	if err != nil {
		return d, err
	}
	sev, ok := SeverityCode(row[2])
	if !ok {
		return d, fmt.Errorf("plugin %d: severity %v is not an integer", id, row[2])
	}
	d = PluginDetail{
		PluginID:    id,
		Name:        CellText(row[1]),
		Severity:    Severity(sev),
		Host:        CellText(row[3]),
		Description: CellText(row[4]),
		Synopsis:    CellText(row[5]),
		SeeAlso:     CellText(row[6]),
		Output:      CellText(row[7]),
	}
	return d, nil
}

// DecodePluginDetails decodes every row of a drill-down result.
func DecodePluginDetails(rows [][]any) ([]PluginDetail, error) {
	out := make([]PluginDetail, 0, len(rows))
	for i, r := range rows {
		d, err := DecodePluginDetailRow(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func pluginIDFromCell(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("plugin id %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("plugin id %q is not an integer", n)
		}
		return id, nil
	}
	return 0, fmt.Errorf("plugin id has unsupported type %T", v)
}

// SeverityUpdateRequest is the body of POST /update_severity.
type SeverityUpdateRequest struct {
	DB       string   `json:"db" example:"q1-audit.db"`
	PluginID int64    `json:"plugin_id" example:"101"`
	Severity Severity `json:"severity" example:"5" enums:"0,1,2,3,4,5"`
}
