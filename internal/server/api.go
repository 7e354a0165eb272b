package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/tasks"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SessionResponse is returned when a session starts.
type SessionResponse struct {
	Session *models.Session `json:"session"`
	Tracks  []models.Track  `json:"tracks"`
}

// APIHandler serves the party API on top of a [tasks.PartyEngine].
type APIHandler struct {
	engine tasks.PartyEngine
	auth   *Authenticator
	logger *log.Logger
}

// NewAPIHandler creates the API handler. Admin routes are wrapped with [Authenticator.RequireAuth].
func NewAPIHandler(engine tasks.PartyEngine, auth *Authenticator, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &APIHandler{engine: engine, auth: auth, logger: shared.WithLogger(logger, "component", "api")}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []Route {
	return []Route{
		{http.MethodPost, "/token", http.HandlerFunc(h.login)},
		{http.MethodGet, "/data", http.HandlerFunc(h.data)},
		{http.MethodGet, "/playlists", http.HandlerFunc(h.playlists)},
		{http.MethodGet, "/session", http.HandlerFunc(h.activeSession)},
		{http.MethodPost, "/session", h.auth.RequireAuth(http.HandlerFunc(h.startSession))},
		{http.MethodDelete, "/session/{id}", h.auth.RequireAuth(http.HandlerFunc(h.endSession))},
		{http.MethodGet, "/tracks", http.HandlerFunc(h.tracks)},
		{http.MethodGet, "/current", http.HandlerFunc(h.current)},
		{http.MethodGet, "/queue", http.HandlerFunc(h.queue)},
		{http.MethodPost, "/queue", http.HandlerFunc(h.queueTrack)},
	}
}

// login expects an application/x-www-form-urlencoded body with username and password.
func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed form body")
		return
	}
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.auth.Login(username, password)
	if err != nil {
		h.logger.Warn("login rejected", "user", username)
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *APIHandler) data(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) playlists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.engine.Playlists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *APIHandler) activeSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.ActiveSession(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "No active session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// startSession reads session_name and playlist_id from the query string or a form body.
func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request) {
	name, playlistID := r.FormValue("session_name"), r.FormValue("playlist_id")

	result, err := h.engine.StartSession(r.Context(), name, playlistID, nil)
	if err != nil {
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, "Playlist id does not exist")
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: result.Session, Tracks: result.Tracks})
}

func (h *APIHandler) endSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Session id must be an integer")
		return
	}
	if err := h.engine.EndSession(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) tracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.engine.Tracks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) current(w http.ResponseWriter, r *http.Request) {
	current, err := h.engine.Current(r.Context())
	if errors.Is(err, shared.ErrNothingPlaying) {
		writeError(w, http.StatusNotFound, "No track currently playing")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *APIHandler) queue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.engine.Queue(r.Context())
	if errors.Is(err, shared.ErrNothingPlaying) {
		writeError(w, http.StatusNotFound, "No queue found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

func (h *APIHandler) queueTrack(w http.ResponseWriter, r *http.Request) {
	trackID := r.FormValue("track_id")

	queue, err := h.engine.QueueTrack(r.Context(), trackID)
	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "Track id does not exist in playlist")
	case errors.Is(err, shared.ErrNothingPlaying):
		writeError(w, http.StatusNotFound, "No queue found")
	case err != nil:
		h.fail(w, r, err)
	default:
		writeJSON(w, http.StatusOK, queue)
	}
}

// fail maps err onto a status code and logs anything that is not a client error.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, detail)
}

// StatusFor maps an error onto an HTTP status code and a client-safe message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, shared.ErrNoActiveDevice):
		return http.StatusNotFound, "No active device found"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream timed out"
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "Catalog unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
