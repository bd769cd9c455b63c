package cmd

import (
	"fmt"
	"io"
	"nessql/session"
	"strings"
	"text/tabwriter"
)

// termPresenter renders session state as plain text tables.
type termPresenter struct {
	w io.Writer
}

func newTermPresenter(w io.Writer) *termPresenter {
	return &termPresenter{w: w}
}

func (p *termPresenter) table() *tabwriter.Writer {
	writer := new(tabwriter.Writer)
	writer.Init(p.w, 0, 8, 1, '\t', 0)
	return writer
}

func (p *termPresenter) Alert(msg string) {
	fmt.Fprintf(p.w, "! %s\n", msg)
}

func (p *termPresenter) ShowDatabases(handles []string, selected string) {
	if len(handles) == 0 {
		fmt.Fprintln(p.w, "No databases available. Upload a .nessus file to create one.")
		return
	}
	fmt.Fprintln(p.w, "Databases:")
	for _, h := range handles {
		marker := " "
		if h == selected {
			marker = "*"
		}
		fmt.Fprintf(p.w, " %s %s\n", marker, h)
	}
}

func (p *termPresenter) ShowResults(t session.ResultTable) {
	writer := p.table()
	if t.Placeholder {
		fmt.Fprintln(writer, session.NoResultsText)
	} else {
		fmt.Fprintf(writer, "#\t%s\n", strings.Join(t.Headers, "\t"))
		for i, row := range t.Rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = c.Text
				if c.PluginLink {
					cells[j] = "[" + c.Text + "]"
				}
			}
			fmt.Fprintf(writer, "%d\t%s\n", i, strings.Join(cells, "\t"))
		}
	}
	writer.Flush()
	fmt.Fprintln(p.w, t.Summary)
}

func (p *termPresenter) ShowStatistics(d session.Dashboard) {
	fmt.Fprintf(p.w, "Scan: %s (%s)\n", d.ScanName, d.DB)
	fmt.Fprintf(p.w, "Total hosts: %d\n", d.TotalHosts)

	writer := p.table()
	fmt.Fprintln(writer, "CRITICAL\tHIGH\tMEDIUM\tLOW\tINFO")
	fmt.Fprintf(writer, "%d\t%d\t%d\t%d\t%d\n", d.Critical, d.High, d.Medium, d.Low, d.Info)
	writer.Flush()

	if len(d.TopPorts) == 0 {
		return
	}
	fmt.Fprintln(p.w, "Top ports:")
	writer = p.table()
	fmt.Fprintln(writer, "PORT\tSERVICE\tHOSTS")
	for _, row := range d.TopPorts {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	writer.Flush()
}

func (p *termPresenter) ShowPluginDetail(v session.PluginDetailView) {
	if v.State == session.DetailClosed || v.State == session.DetailLoading {
		return
	}
	fmt.Fprintf(p.w, "%s (ID %s)\n", v.Name, v.ID)
	fmt.Fprintf(p.w, "Severity: %s\n", v.SeverityLabel)
	for _, section := range []struct{ title, body string }{
		{"Synopsis", v.Synopsis},
		{"Description", v.Description},
		{"See also", v.SeeAlso},
		{"Plugin output", v.Output},
	} {
		if section.body == "" {
			continue
		}
		fmt.Fprintf(p.w, "\n%s:\n%s\n", section.title, section.body)
	}

	opts := make([]string, len(v.Options))
	for i, o := range v.Options {
		opts[i] = fmt.Sprintf("%d=%s", int(o.Value), o.Label)
		if o.Value == v.Selected {
			opts[i] = "<" + opts[i] + ">"
		}
	}
	fmt.Fprintf(p.w, "\nSet severity: %s\n", strings.Join(opts, " "))
	if v.State == session.DetailEditing {
		fmt.Fprintln(p.w, "(unsaved; type 'save' to apply or 'close' to discard)")
	}

	fmt.Fprintf(p.w, "Affected hosts (%d):\n", len(v.Hosts))
	for _, h := range v.Hosts {
		fmt.Fprintf(p.w, "  %s\n", h)
	}
}
