package client_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"nessql/api"
	"nessql/client"
	"nessql/config"
	"nessql/database"
	"nessql/models"
	"nessql/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scanFixture = `<?xml version="1.0" ?>
<NessusClientData_v2>
<Report name="Q1 Audit">
<ReportHost name="10.0.0.5">
<HostProperties><tag name="host-ip">10.0.0.5</tag></HostProperties>
<ReportItem port="443" svc_name="https" protocol="tcp" severity="3" pluginID="101" pluginName="SSL Weak Cipher" pluginFamily="General">
<description>desc</description>
</ReportItem>
</ReportHost>
<ReportHost name="10.0.0.6">
<HostProperties><tag name="host-ip">10.0.0.6</tag></HostProperties>
<ReportItem port="443" svc_name="https" protocol="tcp" severity="3" pluginID="101" pluginName="SSL Weak Cipher" pluginFamily="General">
<description>desc</description>
</ReportItem>
</ReportHost>
</Report>
</NessusClientData_v2>`

type capture struct {
	mu         sync.Mutex
	alerts     []string
	tables     []session.ResultTable
	dashboards []session.Dashboard
}

func (c *capture) Alert(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, msg)
}
func (c *capture) ShowDatabases([]string, string) {}
func (c *capture) ShowResults(t session.ResultTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = append(c.tables, t)
}
func (c *capture) ShowStatistics(d session.Dashboard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboards = append(c.dashboards, d)
}
func (c *capture) ShowPluginDetail(session.PluginDetailView) {}

func TestSessionAgainstServer(t *testing.T) {
	config.AppConfig = config.Defaults()
	require.NoError(t, database.InitStore(t.TempDir()))
	defer func() {
		database.Store.Close()
		database.Store = nil
	}()
	srv := httptest.NewServer(api.NewServerMux(""))
	defer srv.Close()

	out := &capture{}
	s := session.New(client.New(srv.URL+"/api", nil), out)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, "", s.CurrentDatabase())

	require.NoError(t, s.Upload(ctx, "q1.nessus", strings.NewReader(scanFixture)))
	assert.Equal(t, "Database created successfully", out.alerts[0])
	assert.Equal(t, "q1.db", s.CurrentDatabase())
	require.Len(t, out.dashboards, 1)
	assert.Equal(t, "Q1 Audit", out.dashboards[0].ScanName)
	assert.Equal(t, 2, out.dashboards[0].TotalHosts)
	assert.Equal(t, 2, out.dashboards[0].High)
	assert.Equal(t, [][]string{{"443", "https", "2"}}, out.dashboards[0].TopPorts)

	require.NoError(t, s.RunQuery(ctx, "SELECT plugin_name, severity_label FROM view_findings"))
	tbl := s.Results.Table()
	assert.Equal(t, []string{"PLUGIN NAME", "SEVERITY LABEL"}, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "High", tbl.Rows[0][1].Text)

	require.NoError(t, s.ActivateCell(ctx, 0, 0))
	v := s.Detail.View()
	assert.Equal(t, "101", v.ID)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, v.Hosts)
	assert.Equal(t, models.SeverityHigh, v.Selected)

	require.NoError(t, s.EditSeverity(models.SeverityFalsePositive))
	require.NoError(t, s.SavePlugin(ctx))
	assert.Equal(t, session.DetailClosed, s.Detail.State())
	assert.Contains(t, out.alerts, "Severity updated successfully")

	require.Len(t, out.tables, 2)
	assert.Equal(t, "False Positive", out.tables[1].Rows[0][1].Text)
	assert.Len(t, out.dashboards, 1)

	err := s.RunQuery(ctx, "SELECT * FROM nope")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out.alerts[len(out.alerts)-1], "Error: "))
}
