package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
	"github.com/JonMunkholm/taxonomy-import/internal/logging"
	"github.com/JonMunkholm/taxonomy-import/internal/sheet"
)

// Import file formats.
const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// multipartMemory is the part of a multipart form held in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

var xlsxMagic = []byte("PK\x03\x04")

var (
	errNoFile          = errors.New("no file provided")
	errBadActionFilter = errors.New("action filter: value must be one of: all, create, update, skip, unknown, invalid")
)

// HealthResponse reports whether a snapshot is loaded.
type HealthResponse struct {
	Status   string     `json:"status"`
	Entities int        `json:"entities"`
	LoadedAt *time.Time `json:"loadedAt,omitempty"`
}

// SerializeRequest is the body of POST /api/serialize.
type SerializeRequest struct {
	Rows []core.FlatRow `json:"rows"`
}

// handleHealth reports liveness and snapshot state. It answers 503 until a
// snapshot is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	entities, loadedAt, loaded := s.snapshotInfo()
	resp := HealthResponse{Status: "ok", Entities: entities}
	if !loaded {
		resp.Status = "loading"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	resp.LoadedAt = &loadedAt
	writeJSON(w, resp)
}

// handleTemplate downloads a header-only import file.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="taxonomy_template.csv"`)
	_, _ = io.WriteString(w, core.TemplateCSV())
}

// handleExport downloads the current snapshot in the import format.
// ?format=csv (default) or ?format=xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = formatCSV
	}
	if format != formatCSV && format != formatXLSX {
		respondError(w, r, fmt.Errorf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	snap, err := s.Snapshot()
	if err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	rows := core.FlattenSnapshot(snap)

	filename := fmt.Sprintf("taxonomy_export_%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	// Render into a buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	switch format {
	case formatXLSX:
		err = sheet.WriteXLSX(&buf, rows)
		w.Header().Set("Content-Type", sheet.ContentType)
	default:
		err = core.WriteCSV(&buf, rows)
		w.Header().Set("Content-Type", "text/csv")
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		respondError(w, r, fmt.Errorf("export: %w", err), http.StatusInternalServerError)
		return
	}

	s.metrics.exportsTotal.WithLabelValues(format).Inc()
	logging.FromContext(r.Context()).Info("snapshot exported", "format", format, "rows", len(rows))
	_, _ = w.Write(buf.Bytes())
}

// handlePreview analyzes an uploaded import file against the snapshot and
// returns what importing it would do. Form fields: file (required) and
// action (optional row filter).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	if r.ContentLength > maxSize {
		respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}

	filter, ok := core.ParseActionFilter(r.FormValue("action"))
	if !ok {
		respondError(w, r, errBadActionFilter, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	format, err := detectFormat(header.Filename, data)
	if err != nil {
		s.metrics.previewsTotal.WithLabelValues("unknown", "rejected").Inc()
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	snap, err := s.Snapshot()
	if err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrTooManyPreviews) {
			w.Header().Set("Retry-After", "5")
			status = http.StatusTooManyRequests
		}
		respondError(w, r, err, status)
		return
	}
	defer s.limiter.Release()

	logger := logging.WithFields(r.Context(), "file", header.Filename, "format", format)
	opts := core.PreviewOptions{
		MaxSuggestions: s.cfg.Import.MaxSuggestions,
		Tracer:         core.SlogTracer{Logger: logger},
	}
	if opts.MaxSuggestions == 0 {
		opts.MaxSuggestions = -1
	}

	resp, err := analyze(format, data, snap, opts)
	if err != nil {
		s.metrics.previewsTotal.WithLabelValues(format, "rejected").Inc()
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.metrics.observePreview(format, resp)
	logger.Info("preview analyzed",
		"preview_id", resp.PreviewID,
		"rows", resp.Summary.TotalRows,
		"new", resp.Summary.NewRows,
		"update", resp.Summary.UpdateRows,
		"skip", resp.Summary.SkipRows,
		"invalid", resp.Summary.InvalidRows,
		"duration_ms", resp.ProcessingTimeMs,
	)

	resp.Rows = core.FilterByAction(resp.Rows, filter)
	writeJSON(w, resp)
}

// analyze runs the preview for an upload of the given format.
func analyze(format string, data []byte, snap core.Snapshot, opts core.PreviewOptions) (*core.PreviewResponse, error) {
	if format == formatXLSX {
		parsed, err := sheet.ReadXLSX(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return core.AnalyzeParsed(parsed, snap, opts)
	}
	return core.AnalyzeImport(data, snap, opts)
}

// detectFormat picks the parser from the file extension, falling back to
// content sniffing when the name has none.
func detectFormat(filename string, data []byte) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv", ".txt":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	case "":
		if bytes.HasPrefix(data, xlsxMagic) {
			return formatXLSX, nil
		}
		return formatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q", ext)
	}
}

// handleSerialize converts JSON rows back into import-format CSV.
func (s *Server) handleSerialize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	var req SerializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("request body too large: limit is %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="taxonomy_import.csv"`)
	_, _ = io.WriteString(w, core.SerializeCSV(req.Rows))
}

// handleReloadSnapshot re-reads the snapshot source on demand.
func (s *Server) handleReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.ReloadSnapshot(r.Context()); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	entities, loadedAt, _ := s.snapshotInfo()
	writeJSON(w, HealthResponse{Status: "ok", Entities: entities, LoadedAt: &loadedAt})
}
