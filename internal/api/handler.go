package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openeurope/energyaudit/internal/auditerr"
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/internal/pipeline"
	"github.com/openeurope/energyaudit/internal/report"
	"github.com/openeurope/energyaudit/internal/store"
	"github.com/openeurope/energyaudit/pkg/types"
)

const defaultUploadName = "upload.csv"

// Auditor runs the audit pipeline for one source.
type Auditor interface {
	Run(ctx context.Context, src pipeline.Source) (*types.Run, error)
}

// ReportSource looks up the report a run produced.
type ReportSource interface {
	Report(ctx context.Context, id string) ([]byte, error)
}

// Options configures the upload and report endpoints.
type Options struct {
	// UploadDir is where reports for uploaded inputs are written, one
	// subdirectory per input name.
	UploadDir string

	// MaxUploadBytes caps the request body of POST /api/v1/runs.
	MaxUploadBytes int64

	// OnRun is called after an uploaded run has been stored. May be nil.
	OnRun func(*types.Run)

	// Reports, when set, is consulted before the report file on disk, which
	// a later run of the same input may have overwritten.
	Reports ReportSource
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store    *store.Store
	auditor  Auditor
	findings *findings.Engine
	opts     Options
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes. auditor and engine may be
// nil; uploads then return 503 and the findings list is empty.
func New(st *store.Store, auditor Auditor, engine *findings.Engine, opts Options) http.Handler {
	h := &Handler{store: st, auditor: auditor, findings: engine, opts: opts, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/runs", h.runs)
	h.mux.HandleFunc("/api/v1/runs/", h.runSubtree) // subtree: {id}, {id}/report, {id}/report.html
	h.mux.HandleFunc("/api/v1/findings", h.listFindings)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{RunCount: len(entries), State: "unknown"}

	for _, a := range h.findings.Active() {
		if a.State != findings.StateFiring {
			continue
		}
		resp.FindingCount++
		if a.Severity == "critical" {
			resp.CriticalCount++
		}
	}

	if len(entries) > 0 {
		last := entries[0].Run
		pct := last.Summary.SavingsPct
		resp.LastRunAt = last.FinishedAt.UTC().Format(time.RFC3339)
		resp.LastRunInput = filepath.Base(last.Input)
		resp.LastSavingsPct = &pct
		resp.State = "ok"
	}
	switch {
	case resp.CriticalCount > 0:
		resp.State = "critical"
	case resp.FindingCount > 0:
		resp.State = "degraded"
	}
	jsonResp(w, http.StatusOK, resp)
}

// runs serves GET and POST /api/v1/runs.
func (h *Handler) runs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRuns(w, r)
	case http.MethodPost:
		h.createRun(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// listRuns returns GET /api/v1/runs: all live runs, newest first.
func (h *Handler) listRuns(w http.ResponseWriter, _ *http.Request) {
	entries := h.store.List()
	out := make([]RunResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewRunResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// createRun handles POST /api/v1/runs: audits the CSV request body.
func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		jsonErr(w, http.StatusServiceUnavailable, "uploads are disabled")
		return
	}

	name := filepath.Base(r.URL.Query().Get("name"))
	if name == "." || name == "/" || name == "" {
		name = defaultUploadName
	}

	body := r.Body
	if h.opts.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	src := pipeline.FromReader(name, bytes.NewReader(data))
	if h.opts.UploadDir != "" {
		src.OutputDir = filepath.Join(h.opts.UploadDir, uploadStem(src))
	}

	run, err := h.auditor.Run(r.Context(), src)
	if err != nil {
		writeRunErr(w, err)
		return
	}

	h.store.Put(run)
	if h.opts.OnRun != nil {
		h.opts.OnRun(run)
	}
	e, _ := h.store.Get(run.ID)
	jsonResp(w, http.StatusCreated, NewRunResponse(e))
}

// runSubtree dispatches /api/v1/runs/{id}[/report|/report.html].
func (h *Handler) runSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if rest == "" {
		h.listRuns(w, r)
		return
	}
	id, view, _ := strings.Cut(rest, "/")

	e, ok := h.liveEntry(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "run not found")
		return
	}

	switch view {
	case "":
		jsonResp(w, http.StatusOK, NewRunResponse(e))
	case "report":
		md, ok := h.readReport(r.Context(), w, e.Run)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(md) //nolint:errcheck
	case "report.html":
		md, ok := h.readReport(r.Context(), w, e.Run)
		if !ok {
			return
		}
		page, err := report.HTML(md)
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(page) //nolint:errcheck
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// uploadStem names the per-upload directory under UploadDir. Stems that
// would resolve to UploadDir itself or its parent fall back to the default.
func uploadStem(src pipeline.Source) string {
	stem := src.Stem()
	if stem == "" || stem == "." || stem == ".." || strings.ContainsAny(stem, `/\`) {
		return strings.TrimSuffix(defaultUploadName, filepath.Ext(defaultUploadName))
	}
	return stem
}

// listFindings returns GET /api/v1/findings.
func (h *Handler) listFindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := h.findings.Active()
	if out == nil {
		out = []*findings.Alert{}
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot: all live runs and findings.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store, h.findings))
}

// BuildSnapshot assembles the snapshot payload from the store and the
// findings engine. engine may be nil.
func BuildSnapshot(st *store.Store, engine *findings.Engine) SnapshotResponse {
	entries := st.List()
	runs := make([]RunResponse, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, NewRunResponse(e))
	}
	alerts := engine.Active()
	if alerts == nil {
		alerts = []*findings.Alert{}
	}
	return SnapshotResponse{
		Runs:        runs,
		Findings:    alerts,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

// liveEntry returns the entry for id unless it is missing or past the TTL.
func (h *Handler) liveEntry(id string) (*store.Entry, bool) {
	e, ok := h.store.Get(id)
	if !ok {
		return nil, false
	}
	if ttl := h.store.TTL(); ttl > 0 && time.Since(e.StoredAt) > ttl {
		return nil, false
	}
	return e, true
}

func (h *Handler) readReport(ctx context.Context, w http.ResponseWriter, run *types.Run) ([]byte, bool) {
	if h.opts.Reports != nil {
		if md, err := h.opts.Reports.Report(ctx, run.ID); err == nil {
			return md, true
		}
	}
	md, err := os.ReadFile(run.ReportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jsonErr(w, http.StatusNotFound, "report no longer on disk")
			return nil, false
		}
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return md, true
}

func writeRunErr(w http.ResponseWriter, err error) {
	kind := auditerr.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case auditerr.KindFormat, auditerr.KindEmpty:
		code = http.StatusUnprocessableEntity
	case auditerr.KindNotFound:
		code = http.StatusNotFound
	}
	jsonResp(w, code, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// NewRunResponse maps a store.Entry to its JSON representation, with the
// data-quality diagnostics of the run attached.
func NewRunResponse(e *store.Entry) RunResponse {
	return RunResponse{
		Run:         e.Run,
		Diagnostics: computeDiagnostics(e.Run),
		StoredAt:    e.StoredAt.UTC().Format(time.RFC3339),
	}
}
