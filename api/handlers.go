/*
handlers.go - HTTP API handlers for the customer tracker

PURPOSE:
  Exposes tracking.Service via JSON endpoints. Handles HTTP request and
  response, JSON serialization, and delegates every rule to the service.

ENDPOINTS:
  Public:
    GET    /track?code=X                          Client status lookup

  Admin (session required):
    GET    /admin/api/clients                     List clients
    POST   /admin/api/add-client                  Create client, issue code
    GET    /admin/api/steps                       Step catalog
    POST   /admin/api/add-step                    Append catalog step
    POST   /admin/api/delete-step                 Delete step + cascade
    POST   /admin/api/reorder-steps               Rewrite catalog order
    GET    /admin/api/client/{code}/checklist     Enabled steps
    GET    /admin/api/client/{code}/all-steps     Every step with state
    POST   /admin/api/client/{code}/toggle-step   Enable/disable step
    POST   /admin/api/client/{code}/add-step      Enable step (idempotent)
    POST   /admin/api/client/{code}/delete-step   Disable step
    POST   /admin/api/client/{code}/toggle-done   Flip done flag

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: tracking operations over the table accessor and cache
  - Sessions: admin session gate
  - Logger: request-scoped failures

ERROR HANDLING:
  Every JSON error uses one envelope, {"error": {"kind", "message"}}:
  - 400: validation
  - 403: unauthorized
  - 404: not_found
  - 500: storage_unavailable, internal

SEE ALSO:
  - dto.go: Request/response data structures
  - pages.go: HTML pages and login form
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/tracking"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *tracking.Service
	Sessions *Sessions
	Logger   *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *tracking.Service, sessions *Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Sessions: sessions, Logger: logger}
}

// =============================================================================
// PUBLIC ENDPOINTS
// =============================================================================

// Track returns a client's status.
// GET /track?code=X
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Track(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponse(status))
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// =============================================================================
// CLIENT ENDPOINTS
// =============================================================================

// ListClients returns every client.
// GET /admin/api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Service.ListClients(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTOs(clients))
}

// AddClient creates a client and returns its tracking code.
// POST /admin/api/add-client
func (h *Handler) AddClient(w http.ResponseWriter, r *http.Request) {
	var req AddClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	client, err := h.Service.AddClient(r.Context(), req.Name, req.Service)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AddClientResponse{OK: true, Code: client.Code})
}

// ClientChecklist returns the steps enabled for a client.
// GET /admin/api/client/{code}/checklist
func (h *Handler) ClientChecklist(w http.ResponseWriter, r *http.Request) {
	code := tracking.NormalizeCode(chi.URLParam(r, "code"))
	items, err := h.Service.ClientChecklist(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChecklistResponse{Code: code, Steps: items})
}

// AllSteps returns every catalog step with the client's state.
// GET /admin/api/client/{code}/all-steps
func (h *Handler) AllSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.Service.AllSteps(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

// ToggleStep enables or disables a step for a client.
// POST /admin/api/client/{code}/toggle-step
func (h *Handler) ToggleStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	enabled, err := h.Service.ToggleStep(r.Context(), chi.URLParam(r, "code"), req.Step)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleStepResponse{OK: true, Enabled: enabled})
}

// EnableStep enables a step for a client; enabling twice is a no-op.
// POST /admin/api/client/{code}/add-step
func (h *Handler) EnableStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.EnableStep(r.Context(), chi.URLParam(r, "code"), req.Step); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// DisableStep removes a step from a client's checklist.
// POST /admin/api/client/{code}/delete-step
func (h *Handler) DisableStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.DisableStep(r.Context(), chi.URLParam(r, "code"), req.Step); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ToggleDone flips the done flag of an enabled step.
// POST /admin/api/client/{code}/toggle-done
func (h *Handler) ToggleDone(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	done, err := h.Service.ToggleDone(r.Context(), chi.URLParam(r, "code"), req.Step)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleDoneResponse{OK: true, Done: done})
}

// =============================================================================
// STEP CATALOG ENDPOINTS
// =============================================================================

// ListSteps returns the catalog in order.
// GET /admin/api/steps
func (h *Handler) ListSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.Service.ListSteps(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if steps == nil {
		steps = []string{}
	}
	writeJSON(w, http.StatusOK, steps)
}

// AddStep appends a step to the catalog.
// POST /admin/api/add-step
func (h *Handler) AddStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.AddStep(r.Context(), req.Step); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// DeleteStep removes a step from the catalog and every checklist.
// POST /admin/api/delete-step
func (h *Handler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.DeleteStep(r.Context(), req.Step); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ReorderSteps rewrites the catalog in the given order.
// POST /admin/api/reorder-steps
func (h *Handler) ReorderSteps(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.ReorderSteps(r.Context(), req.Steps); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, &tracking.ValidationError{Field: "body", Message: "invalid request body"})
		return false
	}
	return true
}

// fail logs server-side failures and writes the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusOf(err); status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes err as the JSON error envelope. Storage and internal
// failures get a generic message.
func writeError(w http.ResponseWriter, err error) {
	kind := tracking.KindOf(err)
	message := err.Error()
	switch kind {
	case tracking.KindStorageUnavailable:
		message = "storage is unavailable, try again later"
	case tracking.KindInternal:
		message = "internal error"
	case tracking.KindUnauthorized:
		message = "admin session required"
		if errors.Is(err, tracking.ErrInvalidCredentials) {
			message = "invalid username or password"
		}
	}
	writeJSON(w, statusOf(err), ErrorResponse{Error: ErrorBody{Kind: kind, Message: message}})
}

func statusOf(err error) int {
	switch tracking.KindOf(err) {
	case tracking.KindValidation:
		return http.StatusBadRequest
	case tracking.KindNotFound:
		return http.StatusNotFound
	case tracking.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
