// Package session implements the analyst's interactive session: database
// selection, ad-hoc queries, plugin drill-down with severity override, and the
// statistics dashboard. It is independent of any particular front end; a
// Presenter receives every rendered state change.
package session

import (
	"context"
	"errors"
	"io"
	"nessql/models"
)

// Backend is the request/response contract the session needs from the scan
// service. client.Client implements it over HTTP.
type Backend interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ExecuteQuery(ctx context.Context, db, query string) (models.QueryResult, error)
	QueryPlugin(ctx context.Context, db, pluginName string) (models.QueryResult, error)
	UpdateSeverity(ctx context.Context, db string, pluginID int64, severity models.Severity) (string, error)
	Statistics(ctx context.Context, db string) (models.Statistics, error)
	Upload(ctx context.Context, filename string, r io.Reader) (models.MessageResponse, error)
}

// Presenter renders session state and blocking notifications. Calls are made
// while the emitting component holds its lock, so implementations must not
// call back into the session.
type Presenter interface {
	Alert(msg string)
	ShowDatabases(handles []string, selected string)
	ShowResults(t ResultTable)
	ShowStatistics(d Dashboard)
	ShowPluginDetail(v PluginDetailView)
}

var (
	// ErrNoDatabase is the precondition failure for operations needing a handle.
	ErrNoDatabase = errors.New("no database selected")
	// ErrSuperseded means a newer request of the same kind was issued before
	// this one resolved; its response was discarded.
	ErrSuperseded = errors.New("response superseded by a newer request")
	// ErrNoData is returned when a drill-down finds zero rows.
	ErrNoData = errors.New("no data found")
	// ErrNoCell and ErrNotALink reject ActivateCell on cells that cannot open a drill-down.
	ErrNoCell   = errors.New("no cell")
	ErrNotALink = errors.New("cell is not a plugin link")
	// ErrInvalidFile is the client-side upload extension check.
	ErrInvalidFile = errors.New("file must have a .nessus extension")
)

const (
	msgSelectDatabase = "Please select a database."
	msgNoPluginData   = "No data found for this plugin."
	msgInvalidFile    = "Please choose a .nessus file."
)

// serverMessage is implemented by errors that carry a message reported by the
// server, as opposed to transport or decoding failures.
type serverMessage interface {
	ServerMessage() string
}

// alertText formats err for the analyst: server-reported messages verbatim
// behind "Error: ", everything else behind the operation's fixed prefix.
func alertText(prefix string, err error) string {
	var sm serverMessage
	if errors.As(err, &sm) {
		return "Error: " + sm.ServerMessage()
	}
	return prefix + err.Error()
}

// generation tags requests of one kind; only the latest may update state.
type generation struct {
	n uint64
}

func (g *generation) next() uint64 {
	g.n++
	return g.n
}

func (g *generation) current(id uint64) bool {
	return g.n == id
}
