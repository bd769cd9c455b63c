package models

// StatisticsRequest is the body of POST /statistics.
type StatisticsRequest struct {
	DB string `json:"db" example:"q1-audit.db"`
}

// Statistics is the dashboard snapshot for one scan database. Missing
// SeverityCounts entries mean zero. TopPorts rows are (port, service, hosts).
type Statistics struct {
	ScanName       string           `json:"scan_name"`
	TotalHosts     int              `json:"total_hosts"`
	SeverityCounts map[Severity]int `json:"severity_counts"`
	TopPorts       [][]any          `json:"top_ports"`
}

// Count returns the number of findings at s, zero when absent.
func (s Statistics) Count(sev Severity) int {
	if s.SeverityCounts == nil {
		return 0
	}
	return s.SeverityCounts[sev]
}
