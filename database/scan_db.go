package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"nessql/logger"
	"nessql/models"
)

// TopPortsLimit bounds the dashboard's most-common-ports table.
const TopPortsLimit = 10

// ExecuteQuery runs analyst-supplied SQL against a read-only connection.
// The text is passed to SQLite unmodified.
func (s *ScanStore) ExecuteQuery(ctx context.Context, handle, query string) (models.QueryResult, error) {
	logger.Info("Executing query on %s", handle)
	logger.Debug("Query text for %s: %s", handle, query)
	result := models.QueryResult{Columns: []string{}, Rows: [][]any{}}

	c, err := s.conn(handle)
	if err != nil {
		return result, err
	}
	rows, err := c.ro.QueryContext(ctx, query)
	if err != nil {
		return result, fmt.Errorf("executing query on %s: %w", handle, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return result, fmt.Errorf("reading result columns on %s: %w", handle, err)
	}
	result.Columns = cols

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return result, fmt.Errorf("scanning result row on %s: %w", handle, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterating result rows on %s: %w", handle, err)
	}
	logger.Debug("Query on %s returned %d columns, %d rows", handle, len(result.Columns), len(result.Rows))
	return result, nil
}

// QueryPlugin returns one detail row per (plugin x affected host) for every
// finding named pluginName, ordered by host.
func (s *ScanStore) QueryPlugin(ctx context.Context, handle, pluginName string) (models.QueryResult, error) {
	logger.Info("Getting plugin details for %q on %s", pluginName, handle)
	result := models.QueryResult{Columns: models.PluginDetailColumns, Rows: [][]any{}}

	c, err := s.conn(handle)
	if err != nil {
		return result, err
	}
	rows, err := c.ro.QueryContext(ctx, `
		SELECT v.plugin_id, v.plugin_name, v.severity, h.ip,
		       COALESCE(v.description, ''), COALESCE(v.synopsis, ''),
		       COALESCE(v.see_also, ''), COALESCE(v.plugin_output, '')
		FROM vulnerabilities v
		INNER JOIN hosts h ON h.id = v.host_id
		WHERE v.plugin_name = ?
		ORDER BY h.ip ASC, v.port ASC, v.id ASC
	`, pluginName)
	if err != nil {
		return result, fmt.Errorf("querying plugin %q on %s: %w", pluginName, handle, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.PluginDetail
		if err := rows.Scan(&d.PluginID, &d.Name, &d.Severity, &d.Host, &d.Description, &d.Synopsis, &d.SeeAlso, &d.Output); err != nil {
			return result, fmt.Errorf("scanning plugin row for %q on %s: %w", pluginName, handle, err)
		}
		result.Rows = append(result.Rows, d.Row())
	}
	return result, rows.Err()
}

// UpdateSeverity overrides the severity of every row of a plugin. The scanner's
// value stays in original_severity.
func (s *ScanStore) UpdateSeverity(ctx context.Context, handle string, pluginID int64, severity models.Severity) error {
	logger.Info("Updating severity of plugin %d on %s to %d", pluginID, handle, severity)
	if !severity.Editable() {
		return fmt.Errorf("severity %d out of range 0-5", severity)
	}
	c, err := s.conn(handle)
	if err != nil {
		return err
	}
	res, err := c.rw.ExecContext(ctx, "UPDATE vulnerabilities SET severity = ? WHERE plugin_id = ?", int(severity), pluginID)
	if err != nil {
		return fmt.Errorf("executing severity update for plugin %d on %s: %w", pluginID, handle, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected for plugin %d on %s: %w", pluginID, handle, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrPluginNotFound, pluginID)
	}
	logger.Debug("Severity update for plugin %d on %s touched %d rows", pluginID, handle, n)
	return nil
}

// Statistics computes the dashboard snapshot from scratch.
func (s *ScanStore) Statistics(ctx context.Context, handle string) (models.Statistics, error) {
	logger.Info("Computing statistics for %s", handle)
	stats := models.Statistics{SeverityCounts: map[models.Severity]int{}, TopPorts: [][]any{}}

	c, err := s.conn(handle)
	if err != nil {
		return stats, err
	}

	err = c.ro.QueryRowContext(ctx, "SELECT scan_name FROM scan_info WHERE id = 1").Scan(&stats.ScanName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, fmt.Errorf("querying scan name on %s: %w", handle, err)
	}

	if err := c.ro.QueryRowContext(ctx, "SELECT COUNT(*) FROM hosts").Scan(&stats.TotalHosts); err != nil {
		return stats, fmt.Errorf("counting hosts on %s: %w", handle, err)
	}

	sevRows, err := c.ro.QueryContext(ctx, "SELECT severity, COUNT(*) FROM vulnerabilities GROUP BY severity")
	if err != nil {
		return stats, fmt.Errorf("counting severities on %s: %w", handle, err)
	}
	defer sevRows.Close()
	for sevRows.Next() {
		var sev models.Severity
		var n int
		if err := sevRows.Scan(&sev, &n); err != nil {
			return stats, fmt.Errorf("scanning severity count on %s: %w", handle, err)
		}
		stats.SeverityCounts[sev] = n
	}
	if err := sevRows.Err(); err != nil {
		return stats, fmt.Errorf("iterating severity counts on %s: %w", handle, err)
	}

	portRows, err := c.ro.QueryContext(ctx, `
		SELECT port, COALESCE(service, ''), COUNT(DISTINCT host_id) AS hosts
		FROM open_ports
		WHERE port <> 0
		GROUP BY port, service
		ORDER BY hosts DESC, port ASC
		LIMIT ?
	`, TopPortsLimit)
	if err != nil {
		return stats, fmt.Errorf("querying top ports on %s: %w", handle, err)
	}
	defer portRows.Close()
	for portRows.Next() {
		var port, hosts int64
		var service string
		if err := portRows.Scan(&port, &service, &hosts); err != nil {
			return stats, fmt.Errorf("scanning top port on %s: %w", handle, err)
		}
		stats.TopPorts = append(stats.TopPorts, []any{port, service, hosts})
	}
	return stats, portRows.Err()
}
