package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePluginDetailRow(t *testing.T) {
	row := []any{float64(101), "SSL Weak Cipher", float64(3), "10.0.0.5", "desc", "syn", "see", "out"}
	d, err := DecodePluginDetailRow(row)
	require.NoError(t, err)
	assert.Equal(t, PluginDetail{
		PluginID:    101,
		Name:        "SSL Weak Cipher",
		Severity:    SeverityHigh,
		Host:        "10.0.0.5",
		Description: "desc",
		Synopsis:    "syn",
		SeeAlso:     "see",
		Output:      "out",
	}, d)
}

func TestDecodePluginDetailRow_NullTextFields(t *testing.T) {
	row := []any{int64(7), "X", int64(0), "h", nil, nil, nil, nil}
	d, err := DecodePluginDetailRow(row)
	require.NoError(t, err)
	assert.Empty(t, d.Description)
	assert.Empty(t, d.Output)
}

func TestDecodePluginDetailRow_Rejects(t *testing.T) {
	cases := map[string][]any{
		"short":      {float64(1), "x", float64(2)},
		"long":       {float64(1), "x", float64(2), "h", "", "", "", "", "extra"},
		"bad id":     {"abc", "x", float64(2), "h", "", "", "", ""},
		"float id":   {1.5, "x", float64(2), "h", "", "", "", ""},
		"bad sev":    {float64(1), "x", "high", "h", "", "", "", ""},
		"unknown id": {true, "x", float64(2), "h", "", "", "", ""},
	}
	for name, row := range cases {
		_, err := DecodePluginDetailRow(row)
		assert.Error(t, err, name)
	}
}

func TestPluginDetailRowOrder(t *testing.T) {
	d := PluginDetail{PluginID: 9, Name: "n", Severity: SeverityLow, Host: "h"}
	got, err := DecodePluginDetailRow(d.Row())
	require.NoError(t, err)
	assert.Equal(t, d, got)
	assert.Len(t, d.Row(), len(PluginDetailColumns))
}

func TestDecodePluginDetails_ReportsRowIndex(t *testing.T) {
	rows := [][]any{
		{float64(1), "x", float64(2), "h", "", "", "", ""},
		{float64(1), "x"},
	}
	_, err := DecodePluginDetails(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "", CellText(nil))
	assert.Equal(t, "12", CellText(float64(12)))
	assert.Equal(t, "0.5", CellText(0.5))
	assert.Equal(t, "443", CellText(int64(443)))
	assert.Equal(t, "abc", CellText([]byte("abc")))
	assert.Equal(t, "true", CellText(true))
}

func TestStatisticsCount(t *testing.T) {
	var s Statistics
	assert.Zero(t, s.Count(SeverityHigh))
	s.SeverityCounts = map[Severity]int{SeverityHigh: 5}
	assert.Equal(t, 5, s.Count(SeverityHigh))
	assert.Zero(t, s.Count(SeverityCritical))
}
