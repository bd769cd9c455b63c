package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nessql/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ScanStore {
	t.Helper()
	s, err := NewScanStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func seedScan(t *testing.T, s *ScanStore) string {
	t.Helper()
	ctx := context.Background()
	handle, err := s.CreateDatabase("q1 audit.nessus")
	require.NoError(t, err)

	it, err := s.BeginImport(ctx, handle)
	require.NoError(t, err)
	require.NoError(t, it.AddHost(ctx, models.ScanHostResult{
		Host: models.ScanHost{IP: "10.0.0.5", FQDN: models.NullString("web01")},
		Items: []models.ScanItem{
			{PluginID: 101, PluginName: "SSL Weak Cipher", Severity: models.SeverityHigh, Port: 443, Protocol: "tcp", Service: "https", Description: "desc", Synopsis: "syn", SeeAlso: "see", PluginOutput: "out"},
			{PluginID: 19506, PluginName: "Nessus Scan Information", Severity: models.SeverityInfo},
		},
	}))
	require.NoError(t, it.AddHost(ctx, models.ScanHostResult{
		Host: models.ScanHost{IP: "10.0.0.6"},
		Items: []models.ScanItem{
			{PluginID: 101, PluginName: "SSL Weak Cipher", Severity: models.SeverityHigh, Port: 443, Service: "https"},
			{PluginID: 22, PluginName: "SSH Detected", Severity: models.SeverityInfo, Port: 22, Protocol: "tcp", Service: "ssh"},
		},
	}))
	require.NoError(t, it.AddHost(ctx, models.ScanHostResult{Host: models.ScanHost{}}))
	require.NoError(t, it.SetScanInfo(ctx, "Q1 Audit", "Basic Network Scan", "q1 audit.nessus"))

	summary, err := it.Commit()
	require.NoError(t, err)
	assert.Equal(t, models.ImportSummary{DB: handle, ScanName: "Q1 Audit", Hosts: 2, Findings: 4, OpenPorts: 3, SkippedRows: 1}, summary)
	return handle
}

func TestCreateDatabase_HandleAllocation(t *testing.T) {
	s := newTestStore(t)

	h1, err := s.CreateDatabase("/uploads/q1 audit.nessus")
	require.NoError(t, err)
	assert.Equal(t, "q1_audit.db", h1)

	h2, err := s.CreateDatabase("q1 audit.nessus")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Regexp(t, `^q1_audit-[0-9a-f]{8}\.db$`, h2)

	h3, err := s.CreateDatabase("../..")
	require.NoError(t, err)
	assert.Regexp(t, `^scan-[0-9a-f]{8}\.db$`, h3)

	handles, err := s.ListDatabases()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{h1, h2, h3}, handles)
}

func TestListDatabases_SkipsOtherFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".hidden.db"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "dir.db"), 0750))

	_, err := s.CreateDatabase("b.nessus")
	require.NoError(t, err)
	_, err = s.CreateDatabase("a.nessus")
	require.NoError(t, err)

	handles, err := s.ListDatabases()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.db", "b.db"}, handles)
}

func TestResolve_RejectsPathsAndUnknownHandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, h := range []string{"", "../x.db", "missing.db", "a/b.db", ".hidden.db", "noext"} {
		_, err := s.ExecuteQuery(ctx, h, "SELECT 1")
		assert.ErrorIs(t, err, ErrUnknownDatabase, h)
	}
}

func TestExecuteQuery(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)
	ctx := context.Background()

	res, err := s.ExecuteQuery(ctx, handle, "SELECT plugin_name, severity FROM vulnerabilities WHERE plugin_id = 101 ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"plugin_name", "severity"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{"SSL Weak Cipher", int64(3)}, res.Rows[0])

	res, err = s.ExecuteQuery(ctx, handle, "SELECT * FROM hosts WHERE 0")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Columns)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)

	_, err = s.ExecuteQuery(ctx, handle, "SELECT * FROM nope")
	assert.Error(t, err)
}

func TestExecuteQuery_IsReadOnly(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)
	ctx := context.Background()

	_, err := s.ExecuteQuery(ctx, handle, "DELETE FROM vulnerabilities")
	assert.Error(t, err)

	res, err := s.ExecuteQuery(ctx, handle, "SELECT COUNT(*) AS n FROM vulnerabilities")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Rows[0][0])
}

func TestFindingsView(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)

	res, err := s.ExecuteQuery(context.Background(), handle,
		"SELECT plugin_name, severity_label, affected_hosts FROM view_findings WHERE plugin_id = 101")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{"SSL Weak Cipher", "High", int64(2)}, res.Rows[0])
}

func TestQueryPlugin(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)
	ctx := context.Background()

	res, err := s.QueryPlugin(ctx, handle, "SSL Weak Cipher")
	require.NoError(t, err)
	assert.Equal(t, models.PluginDetailColumns, res.Columns)
	details, err := models.DecodePluginDetails(res.Rows)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "10.0.0.5", details[0].Host)
	assert.Equal(t, "10.0.0.6", details[1].Host)
	assert.Equal(t, int64(101), details[0].PluginID)
	assert.Equal(t, models.SeverityHigh, details[0].Severity)
	assert.Equal(t, "desc", details[0].Description)
	assert.Equal(t, "", details[1].Description)

	res, err = s.QueryPlugin(ctx, handle, "ssl weak cipher")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestUpdateSeverity(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpdateSeverity(ctx, handle, 101, models.SeverityFalsePositive))
	res, err := s.ExecuteQuery(ctx, handle, "SELECT DISTINCT severity, original_severity FROM vulnerabilities WHERE plugin_id = 101")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(5), int64(3)}}, res.Rows)

	assert.ErrorIs(t, s.UpdateSeverity(ctx, handle, 424242, models.SeverityLow), ErrPluginNotFound)
	assert.Error(t, s.UpdateSeverity(ctx, handle, 101, models.Severity(9)))
	assert.ErrorIs(t, s.UpdateSeverity(ctx, "missing.db", 101, models.SeverityLow), ErrUnknownDatabase)
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)

	stats, err := s.Statistics(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "Q1 Audit", stats.ScanName)
	assert.Equal(t, 2, stats.TotalHosts)
	assert.Equal(t, map[models.Severity]int{models.SeverityHigh: 2, models.SeverityInfo: 2}, stats.SeverityCounts)
	require.Len(t, stats.TopPorts, 2)
	assert.Equal(t, []any{int64(443), "https", int64(2)}, stats.TopPorts[0])
	assert.Equal(t, []any{int64(22), "ssh", int64(1)}, stats.TopPorts[1])
}

func TestStatistics_EmptyDatabase(t *testing.T) {
	s := newTestStore(t)
	handle, err := s.CreateDatabase("empty.nessus")
	require.NoError(t, err)

	stats, err := s.Statistics(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "", stats.ScanName)
	assert.Zero(t, stats.TotalHosts)
	assert.Empty(t, stats.SeverityCounts)
	assert.NotNil(t, stats.TopPorts)
}

func TestRemoveDatabase(t *testing.T) {
	s := newTestStore(t)
	handle := seedScan(t, s)

	require.NoError(t, s.RemoveDatabase(handle))
	handles, err := s.ListDatabases()
	require.NoError(t, err)
	assert.Empty(t, handles)
	assert.ErrorIs(t, s.RemoveDatabase(handle), ErrUnknownDatabase)
}
