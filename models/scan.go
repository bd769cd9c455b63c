package models

import "database/sql"

// ScanHost is one ReportHost of an imported scan.
type ScanHost struct {
	ID               int64          `json:"id"`
	IP               string         `json:"ip"`
	FQDN             sql.NullString `json:"fqdn"`
	OS               sql.NullString `json:"os"`
	CredentialedScan sql.NullString `json:"credentialed_scan"`
	StartTime        sql.NullString `json:"start_time"`
	EndTime          sql.NullString `json:"end_time"`
}

// ScanItem is one ReportItem (a plugin result on one host and port).
type ScanItem struct {
	PluginID     int64
	PluginName   string
	PluginFamily string
	Severity     Severity
	Port         int
	Protocol     string
	Service      string
	RiskFactor   string
	Description  string
	Synopsis     string
	Solution     string
	SeeAlso      string
	PluginOutput string
}

// ScanHostResult groups a host with its report items.
type ScanHostResult struct {
	Host  ScanHost
	Items []ScanItem
}

// ImportSummary reports what an ingestion wrote.
type ImportSummary struct {
	DB          string `json:"db"`
	ScanName    string `json:"scan_name"`
	Hosts       int    `json:"hosts"`
	Findings    int    `json:"findings"`
	OpenPorts   int    `json:"open_ports"`
	SkippedRows int    `json:"skipped_rows"`
}
