package session

import (
	"context"
	"io"
	"nessql/logger"
	"nessql/models"
	"strings"
)

// NessusExtension is the only file extension accepted for upload.
const NessusExtension = ".nessus"

// Session owns the selection and wires the components together. Every
// operation reads the active database from the registry.
type Session struct {
	backend Backend
	out     Presenter

	Registry *Registry
	Results  *QueryView
	Detail   *PluginSession
	Stats    *StatisticsPanel
}

func New(backend Backend, out Presenter) *Session {
	stats := NewStatisticsPanel(backend, out)
	results := NewQueryView(backend, out)
	return &Session{
		backend:  backend,
		out:      out,
		Registry: NewRegistry(backend, out, stats),
		Results:  results,
		Detail:   NewPluginSession(backend, out, results),
		Stats:    stats,
	}
}

// Start performs the initial load: list databases, select the first and
// load its statistics.
func (s *Session) Start(ctx context.Context) error {
	return s.Registry.Refresh(ctx)
}

// CurrentDatabase returns the active handle, "" when none.
func (s *Session) CurrentDatabase() string {
	return s.Registry.Current()
}

func (s *Session) SelectDatabase(ctx context.Context, handle string) error {
	return s.Registry.Select(ctx, handle)
}

func (s *Session) RefreshDatabases(ctx context.Context) error {
	return s.Registry.Refresh(ctx)
}

// RunQuery executes query against the active database.
func (s *Session) RunQuery(ctx context.Context, query string) error {
	return s.Results.Run(ctx, s.Registry.Current(), query)
}

// ActivateCell opens the drill-down for a plugin_name cell of the current
// result table. Plain cells are not activatable.
func (s *Session) ActivateCell(ctx context.Context, row, col int) error {
	cell, err := s.Results.Cell(row, col)
	if err != nil {
		return err
	}
	if !cell.PluginLink {
		return ErrNotALink
	}
	return s.OpenPlugin(ctx, cell.Text)
}

// OpenPlugin drills into pluginName on the active database.
func (s *Session) OpenPlugin(ctx context.Context, pluginName string) error {
	return s.Detail.Open(ctx, s.Registry.Current(), pluginName)
}

func (s *Session) EditSeverity(sev models.Severity) error {
	return s.Detail.EditSeverity(sev)
}

func (s *Session) SavePlugin(ctx context.Context) error {
	return s.Detail.Save(ctx)
}

func (s *Session) ClosePlugin() {
	s.Detail.Close()
}

// LoadStatistics reloads the dashboard for the active database.
func (s *Session) LoadStatistics(ctx context.Context) error {
	return s.Stats.Load(ctx, s.Registry.Current())
}

// Upload sends a scan file. The extension check is the only validation done
// before sending; on success the database list is refreshed.
func (s *Session) Upload(ctx context.Context, filename string, r io.Reader) error {
	if !strings.HasSuffix(filename, NessusExtension) {
		s.out.Alert(msgInvalidFile)
		return ErrInvalidFile
	}

	logger.Info("Uploading %s", filename)
	resp, err := s.backend.Upload(ctx, filename, r)
	if err != nil {
		logger.Error("Upload of %s failed: %v", filename, err)
		s.out.Alert(alertText("Upload failed: ", err))
		return err
	}
	s.out.Alert(resp.Message)
	return s.Registry.Refresh(ctx)
}
