// Package client talks to the nessql HTTP API. It implements the backend
// contract consumed by the session package.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"nessql/logger"
	"nessql/models"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"
)

// ServerError is an error message reported by the API in an {error} payload.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// ServerMessage marks the error as reported by the server rather than the transport.
func (e *ServerError) ServerMessage() string { return e.Message }

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL (e.g. http://host:5000/api).
// A nil httpClient uses a client without timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading gzip response from %s: %w", req.URL.Path, err)
		}
		defer gz.Close()
		reader = gz
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", req.URL.Path, err)
	}
	logger.Debug("client: %s %s -> %d (%d bytes, %s)", req.Method, req.URL.Path, resp.StatusCode, len(body), time.Since(start))

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response from %s (status %d)", req.URL.Path, resp.StatusCode)
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() {
		return nil, &ServerError{Status: resp.StatusCode, Message: e.String()}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
	return body, nil
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/databases", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected database list payload")
	}
	handles := []string{}
	for _, v := range res.Array() {
		handles = append(handles, v.String())
	}
	return handles, nil
}

func (c *Client) ExecuteQuery(ctx context.Context, db, query string) (models.QueryResult, error) {
	body, err := c.postJSON(ctx, "/query", models.QueryRequest{DB: db, Query: query})
	if err != nil {
		return models.QueryResult{}, err
	}
	return decodeResult(body), nil
}

func (c *Client) QueryPlugin(ctx context.Context, db, pluginName string) (models.QueryResult, error) {
	body, err := c.postJSON(ctx, "/query_plugin", models.PluginQueryRequest{DB: db, PluginName: pluginName})
	if err != nil {
		return models.QueryResult{}, err
	}
	return decodeResult(body), nil
}

func (c *Client) UpdateSeverity(ctx context.Context, db string, pluginID int64, severity models.Severity) (string, error) {
	body, err := c.postJSON(ctx, "/update_severity", models.SeverityUpdateRequest{DB: db, PluginID: pluginID, Severity: severity})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "message").String(), nil
}

func (c *Client) Statistics(ctx context.Context, db string) (models.Statistics, error) {
	body, err := c.postJSON(ctx, "/statistics", models.StatisticsRequest{DB: db})
	if err != nil {
		return models.Statistics{}, err
	}
	return decodeStatistics(body), nil
}

// Upload sends a scan file as multipart form field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (models.MessageResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.Close()
		return models.MessageResponse{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	body, err := c.do(req)
	if err != nil {
		return models.MessageResponse{}, err
	}
	msg := models.MessageResponse{
		Message: gjson.GetBytes(body, "message").String(),
		DB:      gjson.GetBytes(body, "db").String(),
	}
	if msg.Message == "" {
		return msg, fmt.Errorf("unexpected server response")
	}
	return msg, nil
}

// decodeResult keeps cells as scalars: numbers become float64, NULL nil.
func decodeResult(body []byte) models.QueryResult {
	res := models.QueryResult{Columns: []string{}, Rows: [][]any{}}
	for _, col := range gjson.GetBytes(body, "columns").Array() {
		res.Columns = append(res.Columns, col.String())
	}
	for _, row := range gjson.GetBytes(body, "rows").Array() {
		cells := row.Array()
		out := make([]any, 0, len(cells))
		for _, cell := range cells {
			out = append(out, cell.Value())
		}
		res.Rows = append(res.Rows, out)
	}
	return res
}

// decodeStatistics tolerates partial payloads: absent fields stay zero.
func decodeStatistics(body []byte) models.Statistics {
	doc := gjson.ParseBytes(body)
	stats := models.Statistics{
		ScanName:       doc.Get("scan_name").String(),
		TotalHosts:     int(doc.Get("total_hosts").Int()),
		SeverityCounts: map[models.Severity]int{},
		TopPorts:       [][]any{},
	}
	doc.Get("severity_counts").ForEach(func(key, value gjson.Result) bool {
		code, err := strconv.Atoi(key.String())
		if err == nil {
			stats.SeverityCounts[models.Severity(code)] = int(value.Int())
		}
		return true
	})
	for _, row := range doc.Get("top_ports").Array() {
		cells := []any{}
		for _, cell := range row.Array() {
			cells = append(cells, cell.Value())
		}
		stats.TopPorts = append(stats.TopPorts, cells)
	}
	return stats
}
