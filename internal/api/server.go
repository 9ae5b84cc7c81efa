package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/metrics"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/service"
)

// Server provides the JSON HTTP API and the realtime endpoint.
type Server struct {
	svc            *service.Service
	ws             *realtime.Server
	logger         *logrus.Logger
	metrics        *metrics.Metrics
	allowedOrigins []string
	mux            *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, ws *realtime.Server, allowedOrigins []string, logger *logrus.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		svc:            svc,
		ws:             ws,
		logger:         logger,
		metrics:        m,
		allowedOrigins: allowedOrigins,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.withRecovery(s.withLogging(s.withCORS(s.mux)))
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// API – Auth
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))
	s.mux.HandleFunc("PUT /api/auth/me", s.requireAuth(s.handleUpdateMe))

	// API – Wishlists
	s.mux.HandleFunc("GET /api/wishlists", s.requireAuth(s.handleListWishlists))
	s.mux.HandleFunc("POST /api/wishlists", s.requireAuth(s.handleCreateWishlist))
	s.mux.HandleFunc("GET /api/wishlists/{id}", s.requireAuth(s.handleGetWishlist))
	s.mux.HandleFunc("PUT /api/wishlists/{id}", s.requireAuth(s.handleUpdateWishlist))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}", s.requireAuth(s.handleDeleteWishlist))
	s.mux.HandleFunc("POST /api/wishlists/{id}/invite", s.requireAuth(s.handleInviteMember))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}/members/{userID}", s.requireAuth(s.handleRemoveMember))

	// API – Items
	s.mux.HandleFunc("GET /api/wishlists/{id}/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/wishlists/{id}/items", s.requireAuth(s.handleCreateItem))
	s.mux.HandleFunc("GET /api/wishlists/{id}/items/{itemID}", s.requireAuth(s.handleGetItem))
	s.mux.HandleFunc("PUT /api/wishlists/{id}/items/{itemID}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}/items/{itemID}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("POST /api/wishlists/{id}/items/{itemID}/claim", s.requireAuth(s.handleClaimItem))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}/items/{itemID}/claim", s.requireAuth(s.handleUnclaimItem))
	s.mux.HandleFunc("PUT /api/wishlists/{id}/items/{itemID}/status", s.requireAuth(s.handleSetItemStatus))

	// API – Comments & reactions
	s.mux.HandleFunc("POST /api/wishlists/{id}/items/{itemID}/comments", s.requireAuth(s.handleAddComment))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}/items/{itemID}/comments/{commentID}", s.requireAuth(s.handleDeleteComment))
	s.mux.HandleFunc("POST /api/wishlists/{id}/items/{itemID}/reactions", s.requireAuth(s.handleUpsertReaction))
	s.mux.HandleFunc("DELETE /api/wishlists/{id}/items/{itemID}/reactions", s.requireAuth(s.handleRemoveReaction))

	// Realtime
	s.mux.HandleFunc("GET /api/ws", s.requireAuth(s.handleWebSocket))
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

type validationResponse struct {
	Error  string                     `json:"error"`
	Errors []*service.ValidationError `json:"errors"`
}

// respondServiceError maps a service error onto its HTTP status. Unexpected
// errors are logged and reported without detail.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ves := service.ValidationErrors(err); len(ves) > 0 {
		s.respondJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Errors: ves})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrAccessDenied):
		s.respondError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrConflict):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		s.respondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts a numeric path value.  It writes a 400 response and
// returns false when the value is missing or malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Realtime
// ---------------------------------------------------------------------------

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.ws.Serve(w, r, user.ID)
}
