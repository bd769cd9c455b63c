package session

import (
	"context"
	"errors"
	"fmt"
	"nessql/logger"
	"nessql/models"
	"strconv"
	"sync"
)

// DetailState is the drill-down lifecycle.
type DetailState int

const (
	DetailClosed DetailState = iota
	DetailLoading
	DetailOpen
	DetailEditing
	DetailSaving
)

func (s DetailState) String() string {
	switch s {
	case DetailClosed:
		return "closed"
	case DetailLoading:
		return "loading"
	case DetailOpen:
		return "open"
	case DetailEditing:
		return "editing"
	case DetailSaving:
		return "saving"
	}
	return "unknown"
}

// ErrNotOpen is returned by edit and save outside an open drill-down.
var ErrNotOpen = errors.New("plugin detail is not open")

// PluginDetailView is the rendered drill-down. Shared fields come from the
// first detail row; Hosts has one entry per row, duplicates included.
type PluginDetailView struct {
	State         DetailState
	DB            string
	PluginID      int64
	ID            string
	Name          string
	Description   string
	Synopsis      string
	SeeAlso       string
	Output        string
	SeverityLabel string
	Options       []models.SeverityOption
	Selected      models.Severity
	Hosts         []string
}

// BuildPluginDetailView renders decoded detail rows. rows must be non-empty.
func BuildPluginDetailView(db string, rows []models.PluginDetail) PluginDetailView {
	first := rows[0]
	v := PluginDetailView{
		State:         DetailOpen,
		DB:            db,
		PluginID:      first.PluginID,
		ID:            strconv.FormatInt(first.PluginID, 10),
		Name:          first.Name,
		Description:   first.Description,
		Synopsis:      first.Synopsis,
		SeeAlso:       first.SeeAlso,
		Output:        first.Output,
		SeverityLabel: models.SeverityLabel(first.Severity),
		Options:       models.SeverityOptions(),
		Selected:      first.Severity,
		Hosts:         make([]string, 0, len(rows)),
	}
	for _, r := range rows {
		v.Hosts = append(v.Hosts, r.Host)
	}
	return v
}

// PluginSession drives the drill-down for one finding at a time. A successful
// save re-runs the last query of its QueryView.
type PluginSession struct {
	backend Backend
	out     Presenter
	results *QueryView

	mu    sync.Mutex
	gen   generation
	state DetailState
	view  PluginDetailView
}

func NewPluginSession(backend Backend, out Presenter, results *QueryView) *PluginSession {
	return &PluginSession{backend: backend, out: out, results: results}
}

// Open loads every detail row for pluginName. Server errors, undecodable rows
// and empty results leave the session closed.
func (p *PluginSession) Open(ctx context.Context, db, pluginName string) error {
	if db == "" {
		p.out.Alert(msgSelectDatabase)
		return ErrNoDatabase
	}

	p.mu.Lock()
	id := p.gen.next()
	p.state = DetailLoading
	p.view = PluginDetailView{State: DetailLoading, DB: db, Name: pluginName}
	p.mu.Unlock()

	res, err := p.backend.QueryPlugin(ctx, db, pluginName)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gen.current(id) {
		logger.Debug("Discarding superseded detail response for %q", pluginName)
		return ErrSuperseded
	}
	if err != nil {
		p.reset()
		logger.Error("Loading plugin %q from %s failed: %v", pluginName, db, err)
		p.out.Alert(alertText("Query failed: ", err))
		return err
	}
	if len(res.Rows) == 0 {
		p.reset()
		p.out.Alert(msgNoPluginData)
		return ErrNoData
	}
	rows, err := models.DecodePluginDetails(res.Rows)
	if err != nil {
		p.reset()
		logger.Error("Decoding plugin %q detail rows: %v", pluginName, err)
		p.out.Alert("Query failed: " + err.Error())
		return err
	}

	p.view = BuildPluginDetailView(db, rows)
	p.state = DetailOpen
	p.out.ShowPluginDetail(p.view)
	return nil
}

// EditSeverity changes the pending selection. Nothing is sent until Save.
func (p *PluginSession) EditSeverity(sev models.Severity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != DetailOpen && p.state != DetailEditing {
		p.out.Alert(ErrNotOpen.Error())
		return ErrNotOpen
	}
	if !sev.Editable() {
		err := fmt.Errorf("severity %d is not an edit option", int(sev))
		p.out.Alert(err.Error())
		return err
	}
	p.state = DetailEditing
	p.view.State = DetailEditing
	p.view.Selected = sev
	p.out.ShowPluginDetail(p.view)
	return nil
}

// Save sends the selected severity. On success the drill-down closes and the
// last query is re-run; statistics are left as they are. On failure the
// session returns to its prior state with the selection kept. If the
// drill-down was closed or reopened meanwhile, the outcome is still surfaced
// but the current drill-down is left alone.
func (p *PluginSession) Save(ctx context.Context) error {
	p.mu.Lock()
	if p.state != DetailOpen && p.state != DetailEditing {
		p.mu.Unlock()
		p.out.Alert(ErrNotOpen.Error())
		return ErrNotOpen
	}
	if p.view.DB == "" {
		p.mu.Unlock()
		p.out.Alert(msgSelectDatabase)
		return ErrNoDatabase
	}
	prev := p.state
	p.state = DetailSaving
	p.view.State = DetailSaving
	id := p.gen.n
	db, pluginID, sev := p.view.DB, p.view.PluginID, p.view.Selected
	p.mu.Unlock()

	logger.Info("Updating plugin %d on %s to %s", pluginID, db, sev)
	msg, err := p.backend.UpdateSeverity(ctx, db, pluginID, sev)

	p.mu.Lock()
	if !p.gen.current(id) {
		// The drill-down moved on; the update itself still happened or failed.
		p.mu.Unlock()
		if err != nil {
			logger.Error("Updating plugin %d on %s failed: %v", pluginID, db, err)
			p.out.Alert(alertText("Update failed: ", err))
			return err
		}
		p.out.Alert(msg)
		return p.results.Rerun(ctx)
	}
	if err != nil {
		p.state = prev
		p.view.State = prev
		p.mu.Unlock()
		logger.Error("Updating plugin %d on %s failed: %v", pluginID, db, err)
		p.out.Alert(alertText("Update failed: ", err))
		return err
	}
	p.gen.next()
	p.reset()
	p.mu.Unlock()

	p.out.Alert(msg)
	return p.results.Rerun(ctx)
}

// Close hides the drill-down from any state, dropping unsaved edits and any
// response still in flight.
func (p *PluginSession) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen.next()
	p.reset()
}

// State returns the current lifecycle state.
func (p *PluginSession) State() DetailState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View returns the current rendered drill-down.
func (p *PluginSession) View() PluginDetailView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.view
	v.Hosts = append([]string(nil), p.view.Hosts...)
	return v
}

func (p *PluginSession) reset() {
	p.state = DetailClosed
	p.view = PluginDetailView{State: DetailClosed}
}
