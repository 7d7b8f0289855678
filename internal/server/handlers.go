package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/export"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/internal/storage"
)

const (
	topChapters         = 10
	defaultHistoryLimit = 50
	historyKeep         = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"max_results":  s.engine.MaxResults(),
		"sqlite":       storage.DriverType(),
		"attempts":     s.library.Attempts(),
		"live_clients": s.hub.count(),
	}
	if corpus := s.library.Current(); corpus != nil {
		resp["version"] = corpus.Version
		resp["books"] = len(corpus.Books)
		resp["verses"] = corpus.VerseCount()
		resp["fingerprint"] = corpus.Fingerprint
	}
	if s.storage != nil {
		n, err := s.storage.CountHistory(r.Context())
		if err != nil {
			s.logger.Error("status: count history failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["history_entries"] = n
	}
	snap := s.session.Snapshot()
	resp["generation"] = snap.Generation
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.library.Versions()
	if err != nil {
		s.logger.Error("list versions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{"versions": versions}
	if corpus := s.library.Current(); corpus != nil {
		resp["current"] = corpus.Version
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type selectVersionRequest struct {
	Version string `json:"version"`
}

func (s *Server) handleSelectVersion(w http.ResponseWriter, r *http.Request) {
	var req selectVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version == "" {
		s.respondError(w, http.StatusBadRequest, "version is required")
		return
	}
	s.logger.Debug("select version request", zap.String("version", req.Version))
	corpus, err := s.library.Load(r.Context(), req.Version)
	if err != nil {
		s.respondError(w, loadStatus(err), err.Error())
		return
	}
	if s.storage != nil {
		if err := s.storage.SetSetting(r.Context(), storage.SettingVersion, corpus.Version); err != nil {
			s.logger.Warn("failed to persist version", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":     corpus.Version,
		"books":       len(corpus.Books),
		"fingerprint": corpus.Fingerprint,
	})
}

func loadStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStaleLoad):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// searchRequest is a query plus an optional view filter. The filter narrows
// the returned rows only; totals and aggregates cover the whole search.
type searchRequest struct {
	models.Query
	Books    []string `json:"books,omitempty"`
	Chapters []string `json:"chapters,omitempty"`
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request) (*search.Response, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	query := req.Query
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	s.logger.Debug("search request", zap.String("query", query.Text), zap.String("mode", string(query.Mode)))
	result, err := s.session.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	resp := s.engine.Respond(result.Version, query, result, topChapters)
	s.recordHistory(r.Context(), resp)
	if len(req.Books) > 0 || len(req.Chapters) > 0 {
		filtered := *result
		filtered.Rows = search.FilterRows(result.Rows, req.Books, req.Chapters)
		resp.Result = &filtered
	}
	if len(req.Books) == 1 {
		resp.Chapters = search.ChapterBreakdown(result, req.Books[0])
	}
	return resp, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.runSearch(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.runSearch(w, r)
	if !ok {
		return
	}
	report := export.Report{
		Version:  resp.Version,
		Query:    resp.Query,
		Result:   resp.Result,
		Books:    resp.Books,
		Chapters: s.engine.TopChapters(resp.Result, 0),
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, report); err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(resp.Query)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) recordHistory(ctx context.Context, resp *search.Response) {
	if s.storage == nil || resp.Query.Text == "" {
		return
	}
	entry := &models.HistoryEntry{
		Query:         resp.Query.Text,
		Mode:          resp.Query.Mode,
		CaseSensitive: resp.Query.CaseSensitive,
		Version:       resp.Version,
		Matches:       resp.Result.TotalMatches,
		Exceeded:      resp.Result.Exceeded,
	}
	if err := s.storage.AddHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to record history", zap.Error(err))
		return
	}
	if err := storage.SaveLastQuery(ctx, s.storage, resp.Query); err != nil {
		s.logger.Warn("failed to persist last query", zap.Error(err))
	}
	if _, err := s.storage.PruneHistory(ctx, historyKeep); err != nil {
		s.logger.Warn("failed to prune history", zap.Error(err))
	}
}

type highlightRequest struct {
	Text          string      `json:"text"`
	Query         string      `json:"query"`
	Mode          models.Mode `json:"mode"`
	CaseSensitive bool        `json:"case_sensitive"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q := models.Query{Text: req.Query, Mode: req.Mode, CaseSensitive: req.CaseSensitive}
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	segments := search.Highlight(req.Text, s.session.Matcher(q))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"segments": segments})
}

func (s *Server) handlePassage(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		s.respondError(w, http.StatusBadRequest, "ref is required")
		return
	}
	corpus := s.library.Current()
	if corpus.Empty() {
		s.respondError(w, http.StatusServiceUnavailable, "no version loaded")
		return
	}
	passages := reference.ResolvePassages(ref, corpus)
	if passages == nil {
		passages = []reference.Passage{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":  corpus.Version,
		"passages": passages,
		"verses":   reference.Resolve(ref, corpus),
	})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	corpus := s.library.Current()
	if corpus.Empty() {
		s.respondError(w, http.StatusServiceUnavailable, "no version loaded")
		return
	}
	params := r.URL.Query()
	book, err := intParam(params.Get("book"), 0)
	if err != nil || book < 0 || book >= len(corpus.Books) {
		s.respondError(w, http.StatusBadRequest, "invalid book")
		return
	}
	chapter, err1 := intParam(params.Get("chapter"), 1)
	from, err2 := intParam(params.Get("from"), 1)
	to, err3 := intParam(params.Get("to"), 0)
	if err := errors.Join(err1, err2, err3); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid chapter or verse range")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":  corpus.Version,
		"book":     corpus.Books[book].Name,
		"chapters": corpus.Books[book].ChapterCount(),
		"verses":   reference.ReadRange(corpus, book, chapter, from, to),
	})
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	offset, err := intParam(r.URL.Query().Get("offset"), 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), defaultHistoryLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	entries, err := s.storage.ListHistory(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	entry, err := s.storage.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("get history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	if err := s.storage.ClearHistory(r.Context()); err != nil {
		s.logger.Error("clear history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
