package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Severity is the Nessus risk classification of a finding. Codes 0-4 come from
// the scanner; 5 is an analyst override that marks a finding as a false positive.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityFalsePositive
)

// UnknownSeverityLabel is returned for any code without a read-path label.
const UnknownSeverityLabel = "Unknown"

var severityLabels = [...]string{"Info", "Low", "Medium", "High", "Critical"}

// SeverityOption is one entry of the severity edit vocabulary.
type SeverityOption struct {
	Value Severity `json:"value"`
	Label string   `json:"label"`
}

// SeverityOptions returns the fixed edit vocabulary, False Positive last.
func SeverityOptions() []SeverityOption {
	opts := make([]SeverityOption, 0, len(severityLabels)+1)
	for i, l := range severityLabels {
		opts = append(opts, SeverityOption{Value: Severity(i), Label: l})
	}
	return append(opts, SeverityOption{Value: SeverityFalsePositive, Label: "False Positive"})
}

// Label returns the read-path label. False Positive is an edit target only and
// reports as Unknown here.
func (s Severity) Label() string {
	if s < SeverityInfo || s > SeverityCritical {
		return UnknownSeverityLabel
	}
	return severityLabels[s]
}

// Editable reports whether s is part of the edit vocabulary.
func (s Severity) Editable() bool {
	return s >= SeverityInfo && s <= SeverityFalsePositive
}

func (s Severity) String() string {
	if s == SeverityFalsePositive {
		return "False Positive"
	}
	return s.Label()
}

// SeverityLabel maps any value to its label. It never fails: values that are
// not an integral code in 0-4 yield "Unknown".
func SeverityLabel(v any) string {
	code, ok := SeverityCode(v)
	if !ok {
		return UnknownSeverityLabel
	}
	return Severity(code).Label()
}

// SeverityCode extracts an integral severity code from a loosely typed cell
// value (JSON numbers, database integers, numeric strings).
func SeverityCode(v any) (int, bool) {
	switch n := v.(type) {
	case Severity:
		return int(n), true
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	case []byte:
		return SeverityCode(string(n))
	}
	return 0, false
}

func integralFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseSeverity accepts a code ("3") or a label ("high", "false positive", "fp").
func ParseSeverity(s string) (Severity, error) {
	in := strings.TrimSpace(s)
	if code, err := strconv.Atoi(in); err == nil {
		sev := Severity(code)
		if !sev.Editable() {
			return 0, fmt.Errorf("severity %d out of range 0-5", code)
		}
		return sev, nil
	}
	switch strings.ToLower(in) {
	case "false positive", "false-positive", "falsepositive", "fp":
		return SeverityFalsePositive, nil
	}
	for i, l := range severityLabels {
		if strings.EqualFold(l, in) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}
