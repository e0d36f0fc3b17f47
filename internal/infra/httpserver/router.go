package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appcrawl "github.com/bryanwahyu/policyscope/internal/application/crawl"
	appdocs "github.com/bryanwahyu/policyscope/internal/application/documents"
	domai "github.com/bryanwahyu/policyscope/internal/domain/ai"
	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
	domdocs "github.com/bryanwahyu/policyscope/internal/domain/documents"
	"github.com/bryanwahyu/policyscope/internal/middleware"
)

type Router struct {
	crawlSvc *appcrawl.Service
	docsSvc  *appdocs.Service
	log      *zap.Logger
}

// NewRouter mounts the API. Cross-cutting middleware (auth, rate limit,
// logging, metrics) is applied by the caller so tests can mount the bare
// routes.
func NewRouter(crawlSvc *appcrawl.Service, docsSvc *appdocs.Service, checkers map[string]middleware.HealthChecker, log *zap.Logger) http.Handler {
	r := &Router{crawlSvc: crawlSvc, docsSvc: docsSvc, log: log}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/crawler/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/crawler/status/{id}", r.wrap(r.handleStatus))
		rt.Get("/crawler/history", r.wrap(r.handleHistory))
		rt.Delete("/crawler/session/{id}", r.wrap(r.handleDeleteSession))
		rt.Get("/crawler/session/{id}/results", r.wrap(r.handleResults))

		rt.Get("/documents/search", r.wrap(r.handleSearch))
		rt.Get("/documents/{id}", r.wrap(r.handleGetDocument))
		rt.Get("/documents/{id}/analysis", r.wrap(r.handleGetAnalysis))
		rt.Post("/documents/{id}/favorite", r.wrap(r.handleAddFavorite))
		rt.Delete("/documents/{id}/favorite", r.wrap(r.handleRemoveFavorite))
		rt.Get("/favorites", r.wrap(r.handleListFavorites))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var apiErr *apiError
		switch {
		case errors.As(err, &apiErr):
			writeError(w, apiErr.status, apiErr.code, apiErr.message, apiErr.details)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domdocs.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
		case errors.Is(err, domdocs.ErrDuplicateFavorite):
			writeError(w, http.StatusConflict, "duplicate_favorite", err.Error(), nil)
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai_quota_exceeded", err.Error(), nil)
		default:
			r.log.Error("request failed",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		}
	}
}

// POST /v1/crawler/analyze
// Body: {"url": "...", "document_types": ["tos","privacy"]}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL           string   `json:"url"`
		DocumentTypes []string `json:"document_types"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid JSON body")
	}
	body.URL = middleware.SanitizeString(body.URL)
	if err := middleware.ValidateURL(body.URL); err != nil {
		return badRequest(err.Error())
	}
	types, err := middleware.ValidateDocumentTypes(body.DocumentTypes)
	if err != nil {
		return badRequest(err.Error())
	}

	res, err := r.crawlSvc.Start(req.Context(), appcrawl.StartCommand{
		UserID:        middleware.GetUserFromContext(req.Context()),
		URL:           body.URL,
		DocumentTypes: types,
	})
	if err != nil {
		return err
	}
	middleware.SessionsStarted.Inc()

	return writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id":             res.Session.ID,
		"status":                 res.Session.Status,
		"url":                    res.Session.URL,
		"document_types":         res.Session.DocumentTypes,
		"estimated_time_seconds": res.EstimatedSeconds,
		"created_at":             res.Session.CreatedAt,
	})
}

type statusResponse struct {
	*domain.Session
	Progress float64 `json:"progress"`
}

// GET /v1/crawler/status/{id}
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return badRequest(err.Error())
	}

	sess, err := r.crawlSvc.Status(req.Context(), middleware.GetUserFromContext(req.Context()), domain.SessionID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, statusResponse{Session: sess, Progress: sess.Progress()})
}

// GET /v1/crawler/history?page=&limit=&status=&document_type=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := domain.HistoryFilter{}
	if s := q.Get("status"); s != "" {
		filter.Status = domain.Status(strings.ToLower(s))
	}
	if dt := q.Get("document_type"); dt != "" {
		parsed, ok := domain.ParseDocumentType(dt)
		if !ok {
			return badRequest("unknown document type: " + dt)
		}
		filter.DocumentType = parsed
	}

	list, err := r.crawlSvc.History(req.Context(), middleware.GetUserFromContext(req.Context()),
		middleware.ValidatePage(page), middleware.ValidateLimit(limit), filter)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// DELETE /v1/crawler/session/{id}
func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return badRequest(err.Error())
	}
	if err := r.crawlSvc.Delete(req.Context(), middleware.GetUserFromContext(req.Context()), domain.SessionID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": id})
}

// GET /v1/crawler/session/{id}/results
func (r *Router) handleResults(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return badRequest(err.Error())
	}
	results, err := r.crawlSvc.Results(req.Context(), middleware.GetUserFromContext(req.Context()), domain.SessionID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, results)
}

// GET /v1/documents/{id}
func (r *Router) handleGetDocument(w http.ResponseWriter, req *http.Request) error {
	doc, err := r.docsSvc.Get(req.Context(), domdocs.DocumentID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, doc)
}

// GET /v1/documents/{id}/analysis
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	a, err := r.docsSvc.GetAnalysis(req.Context(), domdocs.DocumentID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/documents/search?q=&document_type=&domain=&page=&limit=
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := domdocs.SearchFilter{
		Query:  middleware.SanitizeString(q.Get("q")),
		Domain: middleware.SanitizeString(q.Get("domain")),
	}
	if dt := q.Get("document_type"); dt != "" {
		parsed, ok := domain.ParseDocumentType(dt)
		if !ok {
			return badRequest("unknown document type: " + dt)
		}
		filter.DocumentType = parsed
	}

	list, err := r.docsSvc.Search(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(limit), filter)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/documents/{id}/favorite
func (r *Router) handleAddFavorite(w http.ResponseWriter, req *http.Request) error {
	f, err := r.docsSvc.Favorite(req.Context(), middleware.GetUserFromContext(req.Context()),
		domdocs.DocumentID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, f)
}

// DELETE /v1/documents/{id}/favorite
func (r *Router) handleRemoveFavorite(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := r.docsSvc.Unfavorite(req.Context(), middleware.GetUserFromContext(req.Context()),
		domdocs.DocumentID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": id})
}

// GET /v1/favorites
func (r *Router) handleListFavorites(w http.ResponseWriter, req *http.Request) error {
	docs, err := r.docsSvc.ListFavorites(req.Context(), middleware.GetUserFromContext(req.Context()))
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []*domdocs.Document{}
	}
	return writeJSON(w, http.StatusOK, docs)
}
