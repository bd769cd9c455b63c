package session

import (
	"context"
	"fmt"
	"nessql/logger"
	"nessql/models"
	"strings"
	"sync"
)

// NoResultsText is shown as the single placeholder row when a result has no columns.
const NoResultsText = "No results found"

// Cell is one rendered table cell. PluginLink cells open the drill-down for Text.
type Cell struct {
	Text       string
	PluginLink bool
}

// ResultTable is the rendered state of the last successful query.
type ResultTable struct {
	DB          string
	Query       string
	Columns     []string // raw column names
	Headers     []string // display names
	Rows        [][]Cell
	Placeholder bool // Rows holds the single "No results found" row
	Count       int
	Summary     string
}

// HeaderText is the display form of a column name: underscores become spaces
// and letters are upper-cased. It is cosmetic only.
func HeaderText(column string) string {
	return strings.ToUpper(strings.ReplaceAll(column, "_", " "))
}

// RowCountText is the human-readable count shown with every result.
func RowCountText(n int) string {
	if n == 1 {
		return "1 row found"
	}
	return fmt.Sprintf("%d rows found", n)
}

// BuildResultTable renders a query result. Every body row has exactly
// len(columns) cells; short rows are padded, long rows truncated.
func BuildResultTable(res models.QueryResult) ResultTable {
	t := ResultTable{
		Columns: append([]string(nil), res.Columns...),
		Count:   len(res.Rows),
		Summary: RowCountText(len(res.Rows)),
	}
	if len(res.Columns) == 0 {
		t.Placeholder = true
		t.Rows = [][]Cell{{{Text: NoResultsText}}}
		return t
	}

	t.Headers = make([]string, len(res.Columns))
	for i, c := range res.Columns {
		t.Headers[i] = HeaderText(c)
	}
	t.Rows = make([][]Cell, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]Cell, len(res.Columns))
		for i, col := range res.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			cells[i] = Cell{Text: models.CellText(v), PluginLink: col == models.PluginNameColumn}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

type lastQuery struct {
	db    string
	query string
}

// QueryView executes analyst queries and holds the rendered result table.
type QueryView struct {
	backend Backend
	out     Presenter

	mu    sync.Mutex
	gen   generation
	last  *lastQuery
	table ResultTable
}

func NewQueryView(backend Backend, out Presenter) *QueryView {
	return &QueryView{backend: backend, out: out}
}

// Run executes query against db. On any error the previous table is kept.
func (v *QueryView) Run(ctx context.Context, db, query string) error {
	if db == "" {
		v.out.Alert(msgSelectDatabase)
		return ErrNoDatabase
	}

	v.mu.Lock()
	id := v.gen.next()
	v.last = &lastQuery{db: db, query: query}
	v.mu.Unlock()

	logger.Info("Running query on %s", db)
	res, err := v.backend.ExecuteQuery(ctx, db, query)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.gen.current(id) {
		logger.Debug("Discarding superseded query response for %s", db)
		return ErrSuperseded
	}
	if err != nil {
		logger.Error("Query on %s failed: %v", db, err)
		v.out.Alert(alertText("Query failed: ", err))
		return err
	}

	t := BuildResultTable(res)
	t.DB, t.Query = db, query
	v.table = t
	v.out.ShowResults(t)
	return nil
}

// Rerun repeats the last Run with identical arguments. It is a no-op when
// nothing has been run yet.
func (v *QueryView) Rerun(ctx context.Context) error {
	v.mu.Lock()
	last := v.last
	v.mu.Unlock()
	if last == nil {
		return nil
	}
	return v.Run(ctx, last.db, last.query)
}

// LastQuery returns the arguments of the most recent Run.
func (v *QueryView) LastQuery() (db, query string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil {
		return "", "", false
	}
	return v.last.db, v.last.query, true
}

// Table returns the currently rendered table.
func (v *QueryView) Table() ResultTable {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.table
}

// Cell returns the rendered cell at (row, col).
func (v *QueryView) Cell(row, col int) (Cell, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.table.Placeholder || row < 0 || row >= len(v.table.Rows) || col < 0 || col >= len(v.table.Rows[row]) {
		return Cell{}, fmt.Errorf("%w at row %d, column %d", ErrNoCell, row, col)
	}
	return v.table.Rows[row][col], nil
}
