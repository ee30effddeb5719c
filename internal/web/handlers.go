package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/store"
	"github.com/sells-group/pavement-cli/internal/tracs"
)

const (
	formatHTML = "html"
	formatCSV  = "csv"
	formatJSON = "json"
)

// responseFormat picks the response body from ?format=, falling back to
// JSON for clients that only accept JSON and HTML otherwise.
func responseFormat(r *http.Request) string {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case formatCSV:
		return formatCSV
	case formatJSON:
		return formatJSON
	case formatHTML:
		return formatHTML
	}
	if strings.HasPrefix(r.Header.Get("Accept"), "application/json") {
		return formatJSON
	}
	return formatHTML
}

func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.cfg)
}

type psvResponse struct {
	RunID     string       `json:"run_id,omitempty"`
	Strategy  psv.Strategy `json:"strategy"`
	Reference string       `json:"reference,omitempty"`
	Results   []psv.Result `json:"results"`
}

type psvPage struct {
	psvResponse
	Columns []string
	Rows    [][]string
	CSV     []byte
}

func (s *Server) handlePSV(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}
	ctx := r.Context()

	strategy := s.cfg.Strategy
	if v := r.FormValue("strategy"); v != "" {
		parsed, err := psv.ParseStrategy(v)
		if err != nil {
			s.fail(w, r, &badRequest{msg: err.Error()})
			return
		}
		strategy = parsed
	}

	ref, refSource, err := s.referenceFromForm(ctx, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	segs, segSource, err := s.segmentsFromForm(ctx, r, ref != nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	opts := []psv.Option{psv.WithConcurrency(s.cfg.Concurrency)}
	if ref != nil {
		opts = append(opts, psv.WithReference(ref, strategy))
	}
	results, err := psv.NewCalculator(s.cfg.Params, opts...).ComputeAll(ctx, segs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := psv.WriteResults(&buf, results); err != nil {
		s.fail(w, r, err)
		return
	}

	sources := []string{segSource}
	if refSource != "" {
		sources = append(sources, refSource)
	}
	resp := psvResponse{
		RunID:     s.record(ctx, store.KindPSV, sources, len(results), buf.Bytes()),
		Strategy:  strategy,
		Reference: refSource,
		Results:   results,
	}

	switch responseFormat(r) {
	case formatCSV:
		writeCSV(w, "psv_results.csv", buf.Bytes())
	case formatJSON:
		writeJSON(w, http.StatusOK, resp)
	default:
		s.render(w, http.StatusOK, "psv.html", psvPage{
			psvResponse: resp,
			Columns:     psv.ResultColumns,
			Rows:        psv.Records(results),
			CSV:         buf.Bytes(),
		})
	}
}

type tracsResponse struct {
	RunID    string          `json:"run_id,omitempty"`
	Link     string          `json:"link_section,omitempty"`
	Criteria tracs.Criteria  `json:"criteria"`
	Surveyed int             `json:"surveyed"`
	Failing  []tracs.Section `json:"failing"`
}

type tracsPage struct {
	tracsResponse
	Columns []string
	Rows    [][]string
	CSV     []byte
}

func (s *Server) handleTRACS(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}
	ctx := r.Context()

	criteria := s.cfg.Criteria
	for field, dst := range map[string]*float64{
		"max_rutting": &criteria.MaxRutting,
		"min_texture": &criteria.MinTexture,
	} {
		if v := r.FormValue(field); v != "" {
			f, err := psv.ParseNumber(v)
			if err != nil {
				s.fail(w, r, &badRequest{msg: field + ": " + err.Error()})
				return
			}
			*dst = f
		}
	}

	u, err := spool(r, "survey")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u == nil {
		s.fail(w, r, &badRequest{msg: "survey file is required"})
		return
	}
	defer u.remove()

	t, err := s.openUpload(ctx, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sections, err := tracs.Load(t)
	if err != nil {
		s.fail(w, r, inputError(err))
		return
	}

	link := strings.TrimSpace(r.FormValue("link_section"))
	failing := tracs.FindFailing(sections, link, criteria)

	var buf bytes.Buffer
	if err := tracs.WriteCSV(&buf, failing); err != nil {
		s.fail(w, r, err)
		return
	}

	resp := tracsResponse{
		RunID:    s.record(ctx, store.KindTRACS, []string{u.name}, len(failing), buf.Bytes()),
		Link:     link,
		Criteria: criteria,
		Surveyed: len(sections),
		Failing:  failing,
	}
	if resp.Failing == nil {
		resp.Failing = []tracs.Section{}
	}

	switch responseFormat(r) {
	case formatCSV:
		writeCSV(w, "tracs_failing.csv", buf.Bytes())
	case formatJSON:
		writeJSON(w, http.StatusOK, resp)
	default:
		rows := make([][]string, len(failing))
		for i, sec := range failing {
			rows[i] = sec.Record()
		}
		s.render(w, http.StatusOK, "tracs.html", tracsPage{
			tracsResponse: resp,
			Columns:       tracs.Columns,
			Rows:          rows,
			CSV:           buf.Bytes(),
		})
	}
}

// record saves a run when history is enabled and returns its id. A failed
// save is logged and does not fail the request.
func (s *Server) record(ctx context.Context, kind store.Kind, sources []string, rows int, output []byte) string {
	if s.store == nil {
		return ""
	}
	run := &store.Run{Kind: kind, Sources: sources, Rows: rows, Output: output}
	if err := s.store.SaveRun(ctx, run); err != nil {
		zap.L().Warn("web: record run", zap.String("kind", string(kind)), zap.Error(err))
		return ""
	}
	return run.ID
}

const noHistory = "run history is disabled"

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: noHistory})
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{Kind: store.Kind(q.Get("kind"))}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: key + " must be a non-negative integer"})
				return
			}
			*dst = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("web: list runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: noHistory})
		return nil, false
	}
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "run " + id + " not found"})
		return nil, false
	}
	if err != nil {
		zap.L().Error("web: get run", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.getRun(w, r); ok {
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleRunOutput(w http.ResponseWriter, r *http.Request) {
	run, ok := s.getRun(w, r)
	if !ok {
		return
	}
	name := "psv_results.csv"
	if run.Kind == store.KindTRACS {
		name = "tracs_failing.csv"
	}
	writeCSV(w, name, run.Output)
}
