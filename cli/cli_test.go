package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, code string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": code, "data": data})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	})
	mux.HandleFunc("/api/samples", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, http.StatusOK, "OK", map[string]any{
				"items": []map[string]any{
					{"id": 2, "description": "second"},
					{"id": 1, "description": "first", "my_class": map[string]any{"variable1": "a"}},
				},
				"total":     2,
				"page":      1,
				"page_size": 20,
			})
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if r.URL.Query().Get("replace") != "true" && body["id"] == float64(1) {
				writeEnvelope(w, http.StatusConflict, "CONFLICT", map[string]any{"detail": "sample already exists"})
				return
			}
			writeEnvelope(w, http.StatusOK, "OK", map[string]any{"id": body["id"]})
		}
	})
	mux.HandleFunc("/api/samples/1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, http.StatusOK, "OK", map[string]any{"id": 1, "description": "first"})
		case http.MethodPatch:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			values := body["values"].(map[string]any)
			writeEnvelope(w, http.StatusOK, "OK", map[string]any{"id": 1, "description": values["description"]})
		case http.MethodDelete:
			writeEnvelope(w, http.StatusOK, "OK", map[string]any{"ok": true})
		}
	})
	mux.HandleFunc("/api/samples/9", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "NOT_FOUND", map[string]any{"detail": "sample not found"})
	})
	mux.HandleFunc("/api/database/integrity", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "OK", map[string]any{"corrupted": false})
	})
	mux.HandleFunc("/api/database/retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "OK", map[string]any{"score": 0.5})
	})
	mux.HandleFunc("/api/database/checkpoint", func(w http.ResponseWriter, r *http.Request) {
		if mode := r.URL.Query().Get("mode"); mode != "passive" && mode != "truncate" {
			writeEnvelope(w, http.StatusBadRequest, "INVALID_REQUEST", map[string]any{"detail": "unknown mode"})
			return
		}
		writeEnvelope(w, http.StatusOK, "OK", map[string]any{"ok": true})
	})
	mux.HandleFunc("/api/error-logs", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "OK", []map[string]any{
			{"id": 3, "level": "ERROR", "code": 1, "message": "no such table: missing"},
		})
	})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"database": map[string]any{"path": "test.db", "sqlite_errors_total": 4},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientUnwrapsEnvelope(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	health, err := client.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])

	page, err := client.ListSamples(ctx, 1, 20, "-id")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(2), page.Items[0].ID)
	require.NotNil(t, page.Items[1].MyClass)
	assert.Equal(t, "a", page.Items[1].MyClass.Variable1)

	sample, err := client.GetSample(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", *sample.Description)

	corrupted, err := client.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, corrupted)

	score, err := client.Retrieve(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)

	logs, err := client.GetErrorLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].Code)

	metrics, err := client.Metrics(ctx)
	require.NoError(t, err)
	assert.Contains(t, metrics, "database")
}

func TestClientReportsAPIErrors(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.GetSample(ctx, 9)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "sample not found", apiErr.Detail)

	err = client.Checkpoint(ctx, "full")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestParseListArgs(t *testing.T) {
	parsed, err := parseListArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, listArgs{Page: 1, PageSize: 20}, parsed)

	parsed, err = parseListArgs([]string{"--order", "-description", "--size=5", "3"})
	require.NoError(t, err)
	assert.Equal(t, listArgs{Page: 3, PageSize: 5, Order: "-description"}, parsed)

	_, err = parseListArgs([]string{"--size", "0"})
	assert.Error(t, err)
	_, err = parseListArgs([]string{"--order"})
	assert.Error(t, err)
	_, err = parseListArgs([]string{"--limit", "4"})
	assert.Error(t, err)
	_, err = parseListArgs([]string{"bogus"})
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	req, err := parseAssignments([]string{"description=hello", "multi_unique_part1=7", "multi_unique_part2=null", `my_class={"variable1":"x"}`})
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "multi_unique_part1", "multi_unique_part2", "my_class"}, req.Columns)
	require.NotNil(t, req.Values.Description)
	assert.Equal(t, "hello", *req.Values.Description)
	require.NotNil(t, req.Values.MultiUniquePart1)
	assert.Equal(t, int64(7), *req.Values.MultiUniquePart1)
	assert.Nil(t, req.Values.MultiUniquePart2)
	require.NotNil(t, req.Values.MyClass)
	assert.Equal(t, "x", req.Values.MyClass.Variable1)

	_, err = parseAssignments(nil)
	assert.Error(t, err)
	_, err = parseAssignments([]string{"unknown=1"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"multi_unique_part1=abc"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"description"})
	assert.Error(t, err)
}

func TestProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "servers.yaml")

	p, err := LoadProfiles(path, "http://localhost:7799")
	require.NoError(t, err)
	assert.Equal(t, "local", p.DefaultServer)
	assert.FileExists(t, path)

	require.NoError(t, p.AddServer("staging", "http://staging:7799", "Staging"))
	assert.Equal(t, "local", p.DefaultServer)
	require.NoError(t, p.SetDefault("staging"))

	reloaded, err := LoadProfiles(path, "unused")
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "staging"}, reloaded.Names())
	server, err := reloaded.Server("")
	require.NoError(t, err)
	assert.Equal(t, "http://staging:7799", server.URL)

	require.NoError(t, reloaded.RemoveServer("staging"))
	assert.Equal(t, "local", reloaded.DefaultServer)
	assert.Error(t, reloaded.RemoveServer("staging"))
	assert.Error(t, reloaded.SetDefault("missing"))
	assert.Error(t, reloaded.AddServer("", "http://x", ""))
}

func runShell(t *testing.T, srv *httptest.Server, commands ...string) string {
	t.Helper()
	var out bytes.Buffer
	s := newShell(NewClient(srv.URL), nil, &out)
	for _, cmd := range commands {
		s.handleCommand(context.Background(), cmd)
	}
	return out.String()
}

func TestShellCommands(t *testing.T) {
	srv := newTestServer(t)

	out := runShell(t, srv, "sample list --order -id")
	assert.Contains(t, out, "Samples (Page 1/1, Total: 2)")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, `{"variable1":"a",...`)

	out = runShell(t, srv, "sample show 1")
	assert.Contains(t, out, "Sample #1")
	assert.Contains(t, out, "Description: first")

	out = runShell(t, srv, "sample set 1 description=renamed")
	assert.Contains(t, out, "✓ Sample 1 updated (description)")

	out = runShell(t, srv, "sample show 9")
	assert.Contains(t, out, "HTTP 404 NOT_FOUND")

	out = runShell(t, srv, "db integrity", "db retrieve")
	assert.Contains(t, out, "✓ Integrity check passed")
	assert.Contains(t, out, "score 0.50")

	out = runShell(t, srv, "errors")
	assert.Contains(t, out, "Database Errors (Total: 1)")
	assert.Contains(t, out, "no such table: missing")

	out = runShell(t, srv, "stats")
	assert.Contains(t, out, "sqlite_errors_total")

	// Confirmation prompts default to "no" without a terminal
	out = runShell(t, srv, "sample delete 1", "errors clear")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("Cancelled.")))

	out = runShell(t, srv, "frobnicate")
	assert.Contains(t, out, "Unknown command: frobnicate")
}

func TestShellExit(t *testing.T) {
	s := newShell(NewClient("http://unused"), nil, io.Discard)
	s.handleCommand(context.Background(), "quit")
	assert.False(t, s.running)
}

func TestPrintBannerGrowsToFitTitle(t *testing.T) {
	var out bytes.Buffer
	PrintBannerWidth(&out, "a very long banner title that does not fit", 20)
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), " a very long banner title that does not fit ")
}
