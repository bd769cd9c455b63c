package core

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"nessql/database"
	"nessql/logger"
	"nessql/models"
	"strconv"
	"strings"
)

// NessusExtension is the only file extension accepted for ingestion.
const NessusExtension = ".nessus"

var ErrNotNessusFile = errors.New("file must have a .nessus extension")

// ScanInfo is the report-level metadata of a .nessus file.
type ScanInfo struct {
	ScanName   string
	PolicyName string
}

type nessusTag struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type nessusItem struct {
	Port         string `xml:"port,attr"`
	Service      string `xml:"svc_name,attr"`
	Protocol     string `xml:"protocol,attr"`
	Severity     string `xml:"severity,attr"`
	PluginID     string `xml:"pluginID,attr"`
	PluginName   string `xml:"pluginName,attr"`
	PluginFamily string `xml:"pluginFamily,attr"`
	RiskFactor   string `xml:"risk_factor"`
	Description  string `xml:"description"`
	Synopsis     string `xml:"synopsis"`
	Solution     string `xml:"solution"`
	SeeAlso      string `xml:"see_also"`
	PluginOutput string `xml:"plugin_output"`
}

type nessusHost struct {
	Name  string       `xml:"name,attr"`
	Tags  []nessusTag  `xml:"HostProperties>tag"`
	Items []nessusItem `xml:"ReportItem"`
}

// ParseNessus streams a .nessus v2 document, calling fn once per ReportHost.
// Hosts are never held in memory all at once.
func ParseNessus(r io.Reader, fn func(models.ScanHostResult) error) (ScanInfo, error) {
	var info ScanInfo
	dec := xml.NewDecoder(r)
	sawReport := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return info, fmt.Errorf("parsing nessus XML: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "policyName":
			var name string
			if err := dec.DecodeElement(&name, &se); err != nil {
				return info, fmt.Errorf("parsing policyName: %w", err)
			}
			info.PolicyName = strings.TrimSpace(name)
		case "Report":
			sawReport = true
			for _, a := range se.Attr {
				if a.Name.Local == "name" {
					info.ScanName = a.Value
				}
			}
		case "ReportHost":
			var h nessusHost
			if err := dec.DecodeElement(&h, &se); err != nil {
				return info, fmt.Errorf("parsing ReportHost: %w", err)
			}
			if err := fn(h.toResult()); err != nil {
				return info, err
			}
		}
	}
	if !sawReport {
		return info, errors.New("parsing nessus XML: no Report element found")
	}
	return info, nil
}

func (h nessusHost) toResult() models.ScanHostResult {
	host := models.ScanHost{IP: strings.TrimSpace(h.Name)}
	for _, t := range h.Tags {
		v := strings.TrimSpace(t.Value)
		switch strings.ToLower(t.Name) {
		case "host-ip":
			if v != "" {
				host.IP = v
			}
		case "host-fqdn":
			host.FQDN = models.NullString(v)
		case "operating-system":
			host.OS = models.NullString(v)
		case "credentialed_scan":
			host.CredentialedScan = models.NullString(v)
		case "host_start":
			host.StartTime = models.NullString(v)
		case "host_end":
			host.EndTime = models.NullString(v)
		}
	}

	res := models.ScanHostResult{Host: host, Items: make([]models.ScanItem, 0, len(h.Items))}
	for _, it := range h.Items {
		pluginID, err := strconv.ParseInt(strings.TrimSpace(it.PluginID), 10, 64)
		if err != nil {
			logger.Debug("ParseNessus: host %s: skipping item with plugin id %q", host.IP, it.PluginID)
			continue
		}
		port, _ := strconv.Atoi(strings.TrimSpace(it.Port))
		sev, _ := strconv.Atoi(strings.TrimSpace(it.Severity))
		res.Items = append(res.Items, models.ScanItem{
			PluginID:     pluginID,
			PluginName:   it.PluginName,
			PluginFamily: it.PluginFamily,
			Severity:     models.Severity(sev),
			Port:         port,
			Protocol:     it.Protocol,
			Service:      it.Service,
			RiskFactor:   strings.TrimSpace(it.RiskFactor),
			Description:  strings.TrimSpace(it.Description),
			Synopsis:     strings.TrimSpace(it.Synopsis),
			Solution:     strings.TrimSpace(it.Solution),
			SeeAlso:      strings.TrimSpace(it.SeeAlso),
			PluginOutput: strings.TrimSpace(it.PluginOutput),
		})
	}
	return res
}

// ImportNessus parses r into a new scan database named after filename.
// On any failure the partially written database is removed.
func ImportNessus(ctx context.Context, store *database.ScanStore, filename string, r io.Reader) (models.ImportSummary, error) {
	if !strings.HasSuffix(strings.ToLower(filename), NessusExtension) {
		return models.ImportSummary{}, ErrNotNessusFile
	}
	logger.Info("ImportNessus: importing %s", filename)

	handle, err := store.CreateDatabase(filename)
	if err != nil {
		return models.ImportSummary{}, err
	}

	it, err := store.BeginImport(ctx, handle)
	if err != nil {
		discardDatabase(store, handle)
		return models.ImportSummary{}, err
	}

	info, err := ParseNessus(r, func(hr models.ScanHostResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return it.AddHost(ctx, hr)
	})
	if err == nil {
		err = it.SetScanInfo(ctx, info.ScanName, info.PolicyName, filename)
	}
	if err != nil {
		logger.Error("ImportNessus: import of %s failed: %v", filename, err)
		it.Rollback()
		discardDatabase(store, handle)
		return models.ImportSummary{}, err
	}

	summary, err := it.Commit()
	if err != nil {
		discardDatabase(store, handle)
		return models.ImportSummary{}, err
	}
	return summary, nil
}

func discardDatabase(store *database.ScanStore, handle string) {
	if err := store.RemoveDatabase(handle); err != nil {
		logger.Error("ImportNessus: could not remove partial database %s: %v", handle, err)
	}
}
