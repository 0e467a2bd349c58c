// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/repotalk/internal/application"
	"github.com/ericfisherdev/repotalk/internal/domain/validation"
)

// Handler translates HTTP requests into façade calls.
type Handler struct {
	svc    *application.MessageService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc *application.MessageService, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /repositories", h.RegisterRepository)
	mux.HandleFunc("GET /repositories", h.ListRepositories)
	mux.HandleFunc("GET /messages", h.ListMessages)
	mux.HandleFunc("POST /messages", h.PostMessage)
	mux.HandleFunc("POST /push", h.Push)
	mux.HandleFunc("GET /health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// RegisterRepository registers a source repository. Registration is
// idempotent on url: a new repository answers 201, an existing one 200.
func (h *Handler) RegisterRepository(w http.ResponseWriter, r *http.Request) {
	var req RegisterRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repo, created, err := h.svc.RegisterRepository(r.Context(), req.Name, req.URL)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("failed to register repository", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toRepositoryResponse(*repo))
}

// ListRepositories returns all registered repositories.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.svc.ListRepositories(r.Context())
	if err != nil {
		h.logger.Error("failed to list repositories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := RepositoriesResponse{Repositories: make([]RepositoryResponse, 0, len(repos))}
	for _, repo := range repos {
		resp.Repositories = append(resp.Repositories, toRepositoryResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListMessages returns one page of the aggregated feed.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.ListMessages(r.Context(), application.MessageQuery{
		Limit:        q.Get("limit"),
		Offset:       q.Get("offset"),
		Sort:         q.Get("sort"),
		Repositories: q.Get("repositories"),
		Types:        q.Get("types"),
	})
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMessagesResponse(page))
}

// PostMessage appends a locally authored message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.svc.PostMessage(r.Context(), req.Content, req.Author)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("failed to post message", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PostMessageResponse{Status: "success", ID: id})
}

// Push triggers the durability pusher and reports the outcome.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.PushNow(r.Context())
	if err != nil {
		h.logger.Warn("manual push failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, PushResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, PushResponse{Status: "success", Message: status})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   nowRFC3339(),
	})
}
