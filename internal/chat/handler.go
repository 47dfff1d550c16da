package chat

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/labdiagnostica/platform/pkg/logging"
)

// Handler exposes the assistant endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the chat handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type sendRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Send handles POST /chat.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.service.Send(r.Context(), req.ConversationID, req.Message, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, ErrEmptyMessage.Error())
		case errors.Is(err, ErrNoProvider):
			writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		default:
			h.logger.Error("chat request failed", "error", err)
			writeError(w, http.StatusBadGateway, "assistant is temporarily unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
