package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archetype-pal/lightbox-backend/internal/api/respond"
	"github.com/archetype-pal/lightbox-backend/internal/session"
)

// SessionHandler provides HTTP transport for saved sessions.
type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SaveSession POST /api/sessions
func (h *SessionHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	sess, err := h.sessions.Save(r.Context(), req.Name)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sess)
}

// ListSessions GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "count": len(sessions)})
}

// LoadSession POST /api/sessions/{sessionId}/load
func (h *SessionHandler) LoadSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := h.sessions.Load(r.Context(), sessionID); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession DELETE /api/sessions/{sessionId}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
