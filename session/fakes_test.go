package session

import (
	"context"
	"io"
	"nessql/models"
	"sync"
)

type queryCall struct {
	db    string
	query string
}

type updateCall struct {
	db       string
	pluginID int64
	severity models.Severity
}

// fakeBackend answers from canned values and records every call.
type fakeBackend struct {
	mu sync.Mutex

	databases    []string
	databasesErr error

	queryFn   func(db, query string) (models.QueryResult, error)
	pluginFn  func(db, name string) (models.QueryResult, error)
	updateMsg string
	updateErr error
	stats     models.Statistics
	statsErr  error
	uploadMsg models.MessageResponse
	uploadErr error

	listCalls    int
	queryCalls   []queryCall
	pluginCalls  []queryCall
	updateCalls  []updateCall
	statsCalls   []string
	uploadNames  []string
	uploadBodies []string
}

func (f *fakeBackend) ListDatabases(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.databases, f.databasesErr
}

func (f *fakeBackend) ExecuteQuery(ctx context.Context, db, query string) (models.QueryResult, error) {
	f.mu.Lock()
	f.queryCalls = append(f.queryCalls, queryCall{db, query})
	fn := f.queryFn
	f.mu.Unlock()
	if fn == nil {
		return models.QueryResult{Columns: []string{}, Rows: [][]any{}}, nil
	}
	return fn(db, query)
}

func (f *fakeBackend) QueryPlugin(ctx context.Context, db, pluginName string) (models.QueryResult, error) {
	f.mu.Lock()
	f.pluginCalls = append(f.pluginCalls, queryCall{db, pluginName})
	fn := f.pluginFn
	f.mu.Unlock()
	if fn == nil {
		return models.QueryResult{Columns: models.PluginDetailColumns, Rows: [][]any{}}, nil
	}
	return fn(db, pluginName)
}

func (f *fakeBackend) UpdateSeverity(ctx context.Context, db string, pluginID int64, severity models.Severity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, updateCall{db, pluginID, severity})
	return f.updateMsg, f.updateErr
}

func (f *fakeBackend) Statistics(ctx context.Context, db string) (models.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, db)
	return f.stats, f.statsErr
}

func (f *fakeBackend) Upload(ctx context.Context, filename string, r io.Reader) (models.MessageResponse, error) {
	body, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadNames = append(f.uploadNames, filename)
	f.uploadBodies = append(f.uploadBodies, string(body))
	return f.uploadMsg, f.uploadErr
}

// recorder is a Presenter that keeps everything it was shown.
type recorder struct {
	mu         sync.Mutex
	alerts     []string
	selectors  [][]string
	selected   []string
	tables     []ResultTable
	dashboards []Dashboard
	details    []PluginDetailView
}

func (r *recorder) Alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func (r *recorder) ShowDatabases(handles []string, selected string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors = append(r.selectors, handles)
	r.selected = append(r.selected, selected)
}

func (r *recorder) ShowResults(t ResultTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, t)
}

func (r *recorder) ShowStatistics(d Dashboard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dashboards = append(r.dashboards, d)
}

func (r *recorder) ShowPluginDetail(v PluginDetailView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, v)
}

// serverErr mimics client.ServerError.
type serverErr string

func (e serverErr) Error() string         { return string(e) }
func (e serverErr) ServerMessage() string { return string(e) }

func sslDetailRows() [][]any {
	return [][]any{{float64(101), "SSL Weak Cipher", float64(3), "10.0.0.5", "desc", "syn", "see", "out"}}
}
