package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/export"
	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/domain"
	"github.com/ahrav/go-aipi/internal/ports"
)

// User-facing error messages.
const (
	msgLoadFailed       = "Failed to load data."
	msgProviderNotFound = "Provider not found."
	msgReleaseNotFound  = "Release not found."
	msgNoArchive        = "Release archive is not configured."
)

const maxSuggestions = 3

type errorBody struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	meta, err := snap.MetaDocument()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type providersResponse struct {
	Mode      domain.Mode            `json:"mode"`
	Count     int                    `json:"count"`
	Providers []domain.ProviderScore `json:"providers"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := s.mode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortKey, err := application.ParseSortKey(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := parseDirection(q.Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	scores := snap.Index.Search(mode, application.RankingQuery{Query: q.Get("q"), Sort: sortKey, Desc: desc})
	writeJSON(w, http.StatusOK, providersResponse{Mode: mode, Count: len(scores), Providers: scores})
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := s.mode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := application.ParseEvidenceFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := application.ParseIndicatorSort(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	profile, err := snap.Index.Profile(id, mode, application.ProfileOptions{Filter: filter, Sort: order})
	if err != nil {
		s.providerError(w, r, snap, id, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleProviderExport(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	score, err := snap.Index.Provider(mode, id)
	if err != nil {
		s.providerError(w, r, snap, id, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteProviderDocument(&buf, score, snap.Index.Indicators(id), snap.Index.Classifier()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeAttachment(w, "application/json", fmt.Sprintf("aipi_%s_%s.json", safeName(id), mode), buf.Bytes())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTable(&buf, snap.Index.Rankings(mode)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", fmt.Sprintf("providers_ranking_%s.csv", mode), buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	in := export.WorkbookInput{
		Rankings:   make(map[domain.Mode][]domain.ProviderScore, len(domain.Modes)),
		Rows:       snap.Index.Rows(),
		Classifier: snap.Index.Classifier(),
	}
	for _, m := range domain.Modes {
		in.Rankings[m] = snap.Index.Rankings(m)
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "aipi.xlsx", buf.Bytes())
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	rows := snap.Index.Rows()
	if id := r.URL.Query().Get("provider"); id != "" {
		rows = snap.Index.Indicators(id)
	}
	if rows == nil {
		rows = []domain.IndicatorRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Index.Sensitivity(mode))
}

type releaseBody struct {
	ports.Release
	Documents []string `json:"documents,omitempty"`
}

func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request) {
	if s.releases == nil {
		writeError(w, http.StatusNotFound, msgNoArchive)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	list, err := s.releases.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]releaseBody, 0, len(list))
	for _, rel := range list {
		out = append(out, releaseBody{Release: rel})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if s.releases == nil {
		writeError(w, http.StatusNotFound, msgNoArchive)
		return
	}
	rel, err := s.releases.Get(r.Context(), r.PathValue("tag"))
	if errors.Is(err, ports.ErrReleaseNotFound) {
		writeError(w, http.StatusNotFound, msgReleaseNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body := releaseBody{Release: rel, Documents: make([]string, 0, len(rel.Documents))}
	for name := range rel.Documents {
		body.Documents = append(body.Documents, name)
	}
	slices.Sort(body.Documents)
	writeJSON(w, http.StatusOK, body)
}

// snapshot loads the current snapshot, answering 503 on failure.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*application.Snapshot, bool) {
	snap, err := s.snapshots.Snapshot(r.Context())
	if err != nil {
		klog.FromContext(r.Context()).Error(err, "snapshot unavailable", "path", r.URL.Path)
		writeError(w, http.StatusServiceUnavailable, msgLoadFailed)
		return nil, false
	}
	return snap, true
}

func (s *Server) providerError(w http.ResponseWriter, r *http.Request, snap *application.Snapshot, id string, err error) {
	if !errors.Is(err, application.ErrProviderNotFound) {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusNotFound, errorBody{
		Error:       msgProviderNotFound,
		Suggestions: snap.Index.Suggest(id, maxSuggestions),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	klog.FromContext(r.Context()).Error(err, "request failed", "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (s *Server) mode(raw string) (domain.Mode, error) {
	if strings.TrimSpace(raw) == "" {
		return s.defaultMode, nil
	}
	return domain.ParseMode(raw)
}

func parseDirection(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, fmt.Errorf("unknown sort direction %q", raw)
	}
}

// safeName keeps attachment names to a conservative character set.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
