package core

import (
	"context"
	"strings"
	"testing"

	"nessql/database"
	"nessql/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNessus = `<?xml version="1.0" ?>
<NessusClientData_v2>
<Policy><policyName>Basic Network Scan</policyName></Policy>
<Report name="Q1 Audit" xmlns:cm="http://www.nessus.org/cm">
<ReportHost name="10.0.0.5">
<HostProperties>
<tag name="host-ip">10.0.0.5</tag>
<tag name="host-fqdn">web01.corp.local</tag>
<tag name="operating-system">Linux Kernel 5.4</tag>
<tag name="HOST_START">Tue Jan 14 10:00:00 2025</tag>
</HostProperties>
<ReportItem port="443" svc_name="www" protocol="tcp" severity="3" pluginID="101" pluginName="SSL Weak Cipher" pluginFamily="General">
<risk_factor>High</risk_factor>
<description>
  The remote host supports weak ciphers.
</description>
<synopsis>Weak ciphers.</synopsis>
<solution>Reconfigure.</solution>
<see_also>https://example.com/ssl</see_also>
<plugin_output>TLSv1.0 RC4-MD5</plugin_output>
</ReportItem>
<ReportItem port="0" svc_name="general" protocol="tcp" severity="0" pluginID="19506" pluginName="Nessus Scan Information" pluginFamily="Settings">
<description>Info about the scan.</description>
</ReportItem>
<ReportItem port="22" svc_name="ssh" protocol="tcp" severity="0" pluginID="" pluginName="Broken">
</ReportItem>
</ReportHost>
<ReportHost name="db01">
<HostProperties>
<tag name="host-ip">10.0.0.6</tag>
</HostProperties>
<ReportItem port="443" svc_name="www" protocol="tcp" severity="3" pluginID="101" pluginName="SSL Weak Cipher" pluginFamily="General">
</ReportItem>
</ReportHost>
</Report>
</NessusClientData_v2>
`

func TestParseNessus(t *testing.T) {
	var hosts []models.ScanHostResult
	info, err := ParseNessus(strings.NewReader(sampleNessus), func(hr models.ScanHostResult) error {
		hosts = append(hosts, hr)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ScanInfo{ScanName: "Q1 Audit", PolicyName: "Basic Network Scan"}, info)

	require.Len(t, hosts, 2)
	h := hosts[0]
	assert.Equal(t, "10.0.0.5", h.Host.IP)
	assert.Equal(t, "web01.corp.local", h.Host.FQDN.String)
	assert.Equal(t, "Linux Kernel 5.4", h.Host.OS.String)
	assert.True(t, h.Host.StartTime.Valid)
	assert.False(t, h.Host.EndTime.Valid)

	require.Len(t, h.Items, 2)
	item := h.Items[0]
	assert.Equal(t, int64(101), item.PluginID)
	assert.Equal(t, models.SeverityHigh, item.Severity)
	assert.Equal(t, 443, item.Port)
	assert.Equal(t, "www", item.Service)
	assert.Equal(t, "The remote host supports weak ciphers.", item.Description)
	assert.Equal(t, "TLSv1.0 RC4-MD5", item.PluginOutput)

	assert.Equal(t, "10.0.0.6", hosts[1].Host.IP)
}

func TestParseNessus_Errors(t *testing.T) {
	noop := func(models.ScanHostResult) error { return nil }

	_, err := ParseNessus(strings.NewReader(`<NessusClientData_v2></NessusClientData_v2>`), noop)
	assert.Error(t, err)

	_, err = ParseNessus(strings.NewReader(`<NessusClientData_v2><Report name="x"><ReportHost`), noop)
	assert.Error(t, err)

	_, err = ParseNessus(strings.NewReader(sampleNessus), func(models.ScanHostResult) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestImportNessus(t *testing.T) {
	store, err := database.NewScanStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	summary, err := ImportNessus(ctx, store, "q1.nessus", strings.NewReader(sampleNessus))
	require.NoError(t, err)
	assert.Equal(t, "q1.db", summary.DB)
	assert.Equal(t, "Q1 Audit", summary.ScanName)
	assert.Equal(t, 2, summary.Hosts)
	assert.Equal(t, 3, summary.Findings)
	assert.Equal(t, 2, summary.OpenPorts)

	stats, err := store.Statistics(ctx, summary.DB)
	require.NoError(t, err)
	assert.Equal(t, "Q1 Audit", stats.ScanName)
	assert.Equal(t, 2, stats.TotalHosts)
	assert.Equal(t, 2, stats.Count(models.SeverityHigh))
	assert.Equal(t, 1, stats.Count(models.SeverityInfo))
}

func TestImportNessus_FailureLeavesNoDatabase(t *testing.T) {
	store, err := database.NewScanStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = ImportNessus(ctx, store, "scan.txt", strings.NewReader(sampleNessus))
	assert.ErrorIs(t, err, ErrNotNessusFile)

	_, err = ImportNessus(ctx, store, "bad.nessus", strings.NewReader("<not-xml"))
	assert.Error(t, err)

	handles, err := store.ListDatabases()
	require.NoError(t, err)
	assert.Empty(t, handles)
}
