package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/taxonomy-import/internal/config"
	"github.com/JonMunkholm/taxonomy-import/internal/core"
	"github.com/JonMunkholm/taxonomy-import/internal/sheet"
	"github.com/JonMunkholm/taxonomy-import/internal/snapshot"
)

const revenueURN = "urn:li:glossaryTerm:revenue"

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		"urn:li:glossaryNode:finance": {
			URN:  "urn:li:glossaryNode:finance",
			Kind: core.KindNode,
			Name: "Finance",
		},
		revenueURN: {
			URN:         revenueURN,
			Kind:        core.KindTerm,
			Name:        "Revenue",
			Description: "old",
			Ancestors:   []core.EntityRef{{URN: "urn:li:glossaryNode:finance", Name: "Finance"}},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Snapshot: config.SnapshotConfig{Source: config.SourceFile, Path: "snapshot.json"},
		Import:   config.ImportConfig{MaxFileSize: 1 << 20, MaxSuggestions: 3, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s := NewServer(cfg, snapshot.Static(testSnapshot()))
	require.NoError(t, s.ReloadSnapshot(context.Background()))
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/preview", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), rec.Body.String())
	return er
}

const previewFile = "entity_type,name,parent_nodes,description\n" +
	"term,Revenue,Finance,new\n" +
	"term,Revenue,Finance,old\n" +
	"term,Revenu,Finance,\n" +
	"dataset,Broken,,\n"

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(), snapshot.Static(testSnapshot()))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, s.ReloadSnapshot(context.Background()))
	rec = do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hr HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hr))
	assert.Equal(t, "ok", hr.Status)
	assert.Equal(t, 2, hr.Entities)
	assert.NotNil(t, hr.LoadedAt)
}

func TestTemplate(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/template", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, core.TemplateCSV(), rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	parsed := core.ParseCSVBytes(rec.Body.Bytes())
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "Revenue", parsed.Rows[0].Name)
	assert.Equal(t, revenueURN, parsed.Rows[0].URN)
	assert.Equal(t, "Finance", parsed.Rows[1].Name)
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export?format=xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sheet.ContentType, rec.Header().Get("Content-Type"))

	parsed, err := sheet.ReadXLSX(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, parsed.Rows, 2)
}

func TestExportUnsupportedFormat(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export?format=pdf", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE008", decodeError(t, rec).Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, multipartRequest(t, "import.csv", []byte(previewFile), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.PreviewSummary{
		TotalRows:       4,
		NewRows:         1,
		UpdateRows:      1,
		SkipRows:        1,
		InvalidRows:     1,
		DuplicateInFile: 1,
	}, resp.Summary)
	require.Len(t, resp.Rows, 4)
	assert.Equal(t, core.ActionUpdate, resp.Rows[0].Action)
	require.NotEmpty(t, resp.Rows[2].Suggestions)
	assert.Equal(t, revenueURN, resp.Rows[2].Suggestions[0].URN)
}

func TestPreviewActionFilter(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, multipartRequest(t, "import.csv", []byte(previewFile), map[string]string{"action": "create"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, core.ActionCreate, resp.Rows[0].Action)
	assert.Equal(t, 4, resp.Summary.TotalRows)

	rec = do(s, multipartRequest(t, "import.csv", []byte(previewFile), map[string]string{"action": "delete"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL005", decodeError(t, rec).Code)
}

func TestPreviewXLSX(t *testing.T) {
	var buf bytes.Buffer
	row := core.NewEmptyRow()
	row.EntityType = "term"
	row.Name = "Revenue"
	row.ParentNodes = "Finance"
	row.Description = "old"
	require.NoError(t, sheet.WriteXLSX(&buf, []core.FlatRow{row}))

	s := newTestServer(t, testConfig())
	rec := do(s, multipartRequest(t, "import.xlsx", buf.Bytes(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.SkipRows)
	assert.Equal(t, int64(buf.Len()), resp.InputBytes)
}

func TestPreviewSuggestionsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxSuggestions = 0
	s := newTestServer(t, cfg)

	rec := do(s, multipartRequest(t, "import.csv", []byte(previewFile), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Rows[2].Suggestions)
}

func TestPreviewErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantCode int
		wantErr  string
	}{
		{"no file", "", "", http.StatusBadRequest, "FILE004"},
		{"empty file", "import.csv", "  \n", http.StatusBadRequest, "FILE005"},
		{"header only", "import.csv", "entity_type,name,parent_nodes\n", http.StatusBadRequest, "FILE007"},
		{"unsupported extension", "import.pdf", "x", http.StatusBadRequest, "FILE008"},
		{"broken workbook", "import.xlsx", "not a zip", http.StatusBadRequest, "FILE002"},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, multipartRequest(t, tt.filename, []byte(tt.content), map[string]string{"note": "x"}))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestPreviewFileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s := newTestServer(t, cfg)

	rec := do(s, multipartRequest(t, "import.csv", bytes.Repeat([]byte("a"), 1024), nil))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestPreviewBeforeSnapshotLoaded(t *testing.T) {
	s := NewServer(testConfig(), snapshot.Static(testSnapshot()))
	rec := do(s, multipartRequest(t, "import.csv", []byte(previewFile), nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SNAP003", decodeError(t, rec).Code)
}

func TestSerialize(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := `{"rows":[{"entity_type":"term","name":"Revenue","parent_nodes":"Finance","description":"a, b"}]}`
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/serialize", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	parsed := core.ParseCSVBytes(rec.Body.Bytes())
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "a, b", parsed.Rows[0].Description)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/serialize", strings.NewReader("{")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ003", decodeError(t, rec).Code)
}

type failingSource struct{ err error }

func (f failingSource) Load(context.Context) (core.Snapshot, error) { return nil, f.err }

func TestReloadSnapshotKeepsPreviousOnFailure(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.source = failingSource{err: errors.New("snapshot unavailable: connection refused")}

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/snapshot/reload", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SNAP003", decodeError(t, rec).Code)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap, 2)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/template", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/template", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = do(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for liveness checks
	rec = do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(s, httptest.NewRequest(http.MethodGet, "/api/template", nil))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taxonomy_import_http_requests_total")
	assert.Contains(t, rec.Body.String(), "taxonomy_import_snapshot_entities")
}
