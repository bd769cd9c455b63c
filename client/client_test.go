package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nessql/models"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", nil)
}

func TestServerErrorPayload(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"no such table: nope"}`)
	})

	_, err := c.ExecuteQuery(context.Background(), "a.db", "SELECT * FROM nope")
	require.Error(t, err)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "no such table: nope", se.ServerMessage())
}

func TestErrorFieldWinsOverStatus(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"reported with 200"}`)
	})
	_, err := c.Statistics(context.Background(), "a.db")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "reported with 200", se.Message)
}

func TestTransportErrors(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/databases":
			io.WriteString(w, `<html>oops</html>`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{}`)
		}
	})
	ctx := context.Background()

	_, err := c.ListDatabases(ctx)
	require.Error(t, err)
	var se *ServerError
	assert.False(t, errors.As(err, &se))

	_, err = c.QueryPlugin(ctx, "a.db", "x")
	require.Error(t, err)
	assert.False(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "502")

	unreachable := New("http://127.0.0.1:1/api", nil)
	_, err = unreachable.ListDatabases(ctx)
	assert.Error(t, err)
}

func TestBrotliBody(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		io.WriteString(bw, `["a.db","b.db"]`)
		bw.Close()
	})
	handles, err := c.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.db", "b.db"}, handles)
}

func TestDecodeResultKeepsScalars(t *testing.T) {
	res := decodeResult([]byte(`{"columns":["plugin_id","name","note"],"rows":[[101,"SSL",null]]}`))
	assert.Equal(t, []string{"plugin_id", "name", "note"}, res.Columns)
	assert.Equal(t, [][]any{{float64(101), "SSL", nil}}, res.Rows)

	empty := decodeResult([]byte(`{}`))
	assert.NotNil(t, empty.Columns)
	assert.Empty(t, empty.Rows)
}

func TestDecodeStatistics_Partial(t *testing.T) {
	stats := decodeStatistics([]byte(`{"scan_name":"Q1 Audit","total_hosts":12,"severity_counts":{"3":5},"top_ports":[["443","https",12]]}`))
	assert.Equal(t, "Q1 Audit", stats.ScanName)
	assert.Equal(t, 12, stats.TotalHosts)
	assert.Equal(t, 5, stats.Count(models.SeverityHigh))
	assert.Equal(t, 0, stats.Count(models.SeverityCritical))
	assert.Equal(t, [][]any{{"443", "https", float64(12)}}, stats.TopPorts)

	stats = decodeStatistics([]byte(`{"total_hosts":3}`))
	assert.Equal(t, 3, stats.TotalHosts)
	assert.Empty(t, stats.SeverityCounts)
	assert.Empty(t, stats.TopPorts)
}

func TestUpdateSeverityRequest(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"db":"a.db","plugin_id":101,"severity":5}`, string(body))
		io.WriteString(w, `{"message":"Severity updated successfully"}`)
	})
	msg, err := c.UpdateSeverity(context.Background(), "a.db", 101, models.SeverityFalsePositive)
	require.NoError(t, err)
	assert.Equal(t, "Severity updated successfully", msg)
}

func TestUploadMultipart(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "scan.nessus", hdr.Filename)
		assert.Equal(t, "<NessusClientData_v2/>", string(data))
		io.WriteString(w, `{"message":"Database created successfully","db":"scan.db"}`)
	})
	resp, err := c.Upload(context.Background(), "scan.nessus", strings.NewReader("<NessusClientData_v2/>"))
	require.NoError(t, err)
	assert.Equal(t, models.MessageResponse{Message: "Database created successfully", DB: "scan.db"}, resp)
}

func TestUploadUnexpectedResponse(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, `{}`)
	})
	_, err := c.Upload(context.Background(), "scan.nessus", strings.NewReader("x"))
	assert.Error(t, err)
}
