package database

import (
	"context"
	"database/sql"
	"fmt"
	"nessql/logger"
	"nessql/models"
)

// ImportTx writes one scan into a freshly created database inside a single
// transaction.
type ImportTx struct {
	handle string
	tx     *sql.Tx

	hostStmt *sql.Stmt
	vulnStmt *sql.Stmt
	portStmt *sql.Stmt

	summary models.ImportSummary
}

// BeginImport opens the import transaction for handle.
func (s *ScanStore) BeginImport(ctx context.Context, handle string) (*ImportTx, error) {
	c, err := s.conn(handle)
	if err != nil {
		return nil, err
	}
	tx, err := c.rw.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction on %s: %w", handle, err)
	}
	it := &ImportTx{handle: handle, tx: tx, summary: models.ImportSummary{DB: handle}}

	it.hostStmt, err = tx.PrepareContext(ctx, `
		INSERT INTO hosts (ip, fqdn, os, credentialed_scan, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			fqdn = COALESCE(excluded.fqdn, hosts.fqdn),
			os = COALESCE(excluded.os, hosts.os)
		RETURNING id
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing host insert on %s: %w", handle, err)
	}
	it.vulnStmt, err = tx.PrepareContext(ctx, `
		INSERT INTO vulnerabilities (
			host_id, plugin_id, plugin_name, plugin_family, severity, original_severity,
			port, protocol, service, risk_factor, description, synopsis, solution, see_also, plugin_output
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing vulnerability insert on %s: %w", handle, err)
	}
	it.portStmt, err = tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO open_ports (host_id, port, protocol, service, state)
		VALUES (?, ?, ?, ?, 'open')
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing open port insert on %s: %w", handle, err)
	}
	return it, nil
}

// SetScanInfo records the scan name and provenance.
func (it *ImportTx) SetScanInfo(ctx context.Context, scanName, policyName, sourceFile string) error {
	_, err := it.tx.ExecContext(ctx, `
		INSERT INTO scan_info (id, scan_name, policy_name, source_file) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET scan_name = excluded.scan_name, policy_name = excluded.policy_name, source_file = excluded.source_file
	`, scanName, models.NullString(policyName), models.NullString(sourceFile))
	if err != nil {
		return fmt.Errorf("writing scan info on %s: %w", it.handle, err)
	}
	it.summary.ScanName = scanName
	return nil
}

// AddHost writes a host and its report items.
func (it *ImportTx) AddHost(ctx context.Context, hr models.ScanHostResult) error {
	h := hr.Host
	if h.IP == "" {
		it.summary.SkippedRows++
		logger.Debug("Import %s: skipping host without address", it.handle)
		return nil
	}
	var hostID int64
	err := it.hostStmt.QueryRowContext(ctx, h.IP, h.FQDN, h.OS, h.CredentialedScan, h.StartTime, h.EndTime).Scan(&hostID)
	if err != nil {
		return fmt.Errorf("inserting host %s on %s: %w", h.IP, it.handle, err)
	}
	it.summary.Hosts++

	for _, item := range hr.Items {
		if _, err := it.vulnStmt.ExecContext(ctx,
			hostID, item.PluginID, item.PluginName, models.NullString(item.PluginFamily), int(item.Severity), int(item.Severity),
			item.Port, models.NullString(item.Protocol), models.NullString(item.Service), models.NullString(item.RiskFactor),
			item.Description, item.Synopsis, item.Solution, item.SeeAlso, item.PluginOutput,
		); err != nil {
			return fmt.Errorf("inserting plugin %d for host %s on %s: %w", item.PluginID, h.IP, it.handle, err)
		}
		it.summary.Findings++

		if item.Port == 0 {
			continue
		}
		proto := item.Protocol
		if proto == "" {
			proto = "tcp"
		}
		res, err := it.portStmt.ExecContext(ctx, hostID, item.Port, proto, models.NullString(item.Service))
		if err != nil {
			return fmt.Errorf("inserting port %d/%s for host %s on %s: %w", item.Port, proto, h.IP, it.handle, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			it.summary.OpenPorts++
		}
	}
	return nil
}

// Commit finishes the import and returns what was written.
func (it *ImportTx) Commit() (models.ImportSummary, error) {
	it.closeStmts()
	if err := it.tx.Commit(); err != nil {
		return it.summary, fmt.Errorf("committing import on %s: %w", it.handle, err)
	}
	logger.Info("Import into %s committed: %d hosts, %d findings, %d open ports", it.handle, it.summary.Hosts, it.summary.Findings, it.summary.OpenPorts)
	return it.summary, nil
}

// Rollback abandons the import.
func (it *ImportTx) Rollback() {
	it.closeStmts()
	if err := it.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Error("Rolling back import on %s: %v", it.handle, err)
	}
}

func (it *ImportTx) closeStmts() {
	for _, st := range []*sql.Stmt{it.hostStmt, it.vulnStmt, it.portStmt} {
		if st != nil {
			st.Close()
		}
	}
}
