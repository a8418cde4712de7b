package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/miftah/internal/export"
	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
)

// filterFromRequest reads the dataset filter and page from the query string.
// "collection" is accepted as an alias of "category" for narrations.
func filterFromRequest(r *http.Request) (models.FilterState, int, error) {
	q := r.URL.Query()
	state := models.FilterState{
		SearchTerm: q.Get("search"),
		Category:   q.Get("category"),
		Place:      q.Get("place"),
		SortBy:     q.Get("sort"),
	}
	if state.Category == "" {
		state.Category = q.Get("collection")
	}
	if v := q.Get("surah"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return state, 0, errors.New("surah must be a non-negative integer")
		}
		state.Surah = n
	}
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return state, 0, errors.New("page must be an integer")
		}
		page = n
	}
	return state, page, nil
}

func (s *Server) handleVerses(w http.ResponseWriter, r *http.Request) {
	state, page, err := filterFromRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.app.Verses(r.Context(), state, page)
	if err != nil {
		s.respondFailure(w, "list verses", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleNarrations(w http.ResponseWriter, r *http.Request) {
	state, page, err := filterFromRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.app.Narrations(r.Context(), state, page)
	if err != nil {
		s.respondFailure(w, "list narrations", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	state, page, err := filterFromRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.app.Facts(r.Context(), state, page)
	if err != nil {
		s.respondFailure(w, "list facts", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.app.Categories(r.Context())
	if err != nil {
		s.respondFailure(w, "list categories", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
}

// handleSortKeys lists the sort keys a dataset accepts, default first.
func (s *Server) handleSortKeys(kind models.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := s.app.SortKeys(kind)
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"sort_keys": keys, "default": keys[0]})
	}
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{Query: q.Get("q")}
	if v := q.Get("fuzzy"); v != "" {
		fuzzy, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be a boolean")
			return
		}
		query.Fuzzy = fuzzy
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = n
	}
	if v := q.Get("kinds"); v != "" {
		for _, name := range strings.Split(v, ",") {
			kind, err := models.ParseRecordKind(name)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			query.Kinds = append(query.Kinds, kind)
		}
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	if strings.TrimSpace(query.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Bool("fuzzy", query.Fuzzy), zap.Int("limit", query.Limit))
	response, err := s.app.Search(r.Context(), query)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseRecordKind(chi.URLParam(r, "dataset"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "unknown dataset")
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, _, err := filterFromRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, filename, err := s.app.Export(r.Context(), kind, state, format)
	if err != nil {
		s.respondFailure(w, "export", err)
		return
	}
	if err := export.Download(w, content, filename, format.MIMEType()); err != nil {
		s.logger.Warn("export download interrupted", zap.String("file", filename), zap.Error(err))
	}
}

func (s *Server) handleGetUserData(w http.ResponseWriter, r *http.Request) {
	store := s.app.Store()
	if store == nil {
		s.respondError(w, http.StatusNotImplemented, "user data store not configured")
		return
	}
	data, err := store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get user data", err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) decodeUserData(w http.ResponseWriter, r *http.Request) (*models.UserData, bool) {
	var data models.UserData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	data.UserID = chi.URLParam(r, "id")
	return &data, true
}

func (s *Server) handleSetUserData(w http.ResponseWriter, r *http.Request) {
	store := s.app.Store()
	if store == nil {
		s.respondError(w, http.StatusNotImplemented, "user data store not configured")
		return
	}
	data, ok := s.decodeUserData(w, r)
	if !ok {
		return
	}
	if err := store.Set(r.Context(), data); err != nil {
		s.respondFailure(w, "set user data", err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleUpdateUserData(w http.ResponseWriter, r *http.Request) {
	store := s.app.Store()
	if store == nil {
		s.respondError(w, http.StatusNotImplemented, "user data store not configured")
		return
	}
	patch, ok := s.decodeUserData(w, r)
	if !ok {
		return
	}
	data, err := store.Update(r.Context(), patch)
	if err != nil {
		s.respondFailure(w, "update user data", err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	gen := s.app.Reload()
	s.logger.Info("reload requested", zap.Uint64("generation", gen))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "reloaded", "generation": gen})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Status(r.Context())
	if err != nil {
		s.respondFailure(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// respondFailure maps err to a status code. Load failures are 503 with the
// LoadError itself as the body so clients can decide whether to retry.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	var le *models.LoadError
	switch {
	case errors.As(err, &le):
		s.logger.Error(op+" failed", zap.String("code", string(le.Code)), zap.Bool("retryable", le.Retryable), zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, le)
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalid):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
