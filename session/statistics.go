package session

import (
	"context"
	"nessql/logger"
	"nessql/models"
	"sync"
)

// Dashboard is the rendered statistics panel. Missing severity counts are 0.
type Dashboard struct {
	DB         string
	ScanName   string
	TotalHosts int
	Critical   int
	High       int
	Medium     int
	Low        int
	Info       int
	TopPorts   [][]string
}

// BuildDashboard renders a statistics snapshot for db.
func BuildDashboard(db string, s models.Statistics) Dashboard {
	d := Dashboard{
		DB:         db,
		ScanName:   s.ScanName,
		TotalHosts: s.TotalHosts,
		Critical:   s.Count(models.SeverityCritical),
		High:       s.Count(models.SeverityHigh),
		Medium:     s.Count(models.SeverityMedium),
		Low:        s.Count(models.SeverityLow),
		Info:       s.Count(models.SeverityInfo),
		TopPorts:   make([][]string, 0, len(s.TopPorts)),
	}
	for _, row := range s.TopPorts {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = models.CellText(v)
		}
		d.TopPorts = append(d.TopPorts, cells)
	}
	return d
}

// StatisticsPanel loads and renders the dashboard for one database at a time.
type StatisticsPanel struct {
	backend Backend
	out     Presenter

	mu      sync.Mutex
	gen     generation
	current Dashboard
	loaded  bool
}

func NewStatisticsPanel(backend Backend, out Presenter) *StatisticsPanel {
	return &StatisticsPanel{backend: backend, out: out}
}

// Load fetches a fresh snapshot and replaces the dashboard in full. A response
// for a superseded load is dropped.
func (p *StatisticsPanel) Load(ctx context.Context, db string) error {
	if db == "" {
		p.out.Alert(msgSelectDatabase)
		return ErrNoDatabase
	}

	p.mu.Lock()
	id := p.gen.next()
	p.mu.Unlock()

	stats, err := p.backend.Statistics(ctx, db)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gen.current(id) {
		logger.Debug("Discarding superseded statistics response for %s", db)
		return ErrSuperseded
	}
	if err != nil {
		logger.Error("Statistics for %s failed: %v", db, err)
		p.out.Alert(alertText("Statistics failed: ", err))
		return err
	}

	p.current = BuildDashboard(db, stats)
	p.loaded = true
	p.out.ShowStatistics(p.current)
	return nil
}

// Dashboard returns the last rendered dashboard and whether one was loaded.
func (p *StatisticsPanel) Dashboard() (Dashboard, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.loaded
}
