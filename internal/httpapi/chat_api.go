package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/chat"
	"github.com/johnrirwin/devicedeck/internal/logging"
)

// ChatAPI serves the shopping assistant. It needs no sign-in; the
// conversation id is the only handle.
type ChatAPI struct {
	chat   *chat.Service
	logger *logging.Logger
}

// NewChatAPI creates a new chat API handler
func NewChatAPI(chatSvc *chat.Service, logger *logging.Logger) *ChatAPI {
	return &ChatAPI{chat: chatSvc, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux
func (api *ChatAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/chat", corsMiddleware(api.handleStart))
	mux.HandleFunc("/api/chat/", corsMiddleware(api.handleConversation))
}

func (api *ChatAPI) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	conv, err := api.chat.Start(r.Context())
	if err != nil {
		api.logger.Error("Failed to start conversation", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// handleConversation routes GET /api/chat/{id} and POST /api/chat/{id}/messages
func (api *ChatAPI) handleConversation(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chat/"), "/"), "/")
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		conv, err := api.chat.Get(r.Context(), id)
		if err != nil {
			api.writeChatError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)

	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodPost:
		var params struct {
			Text string `json:"text"`
		}
		if !decodeJSON(w, r, &params) {
			return
		}
		messages, err := api.chat.Send(r.Context(), id, params.Text)
		if err != nil {
			api.writeChatError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})

	case len(parts) <= 2:
		methodNotAllowed(w)

	default:
		writeError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func (api *ChatAPI) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation_not_found", err.Error())
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		api.logger.Error("Chat request failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "chat failed")
	}
}
