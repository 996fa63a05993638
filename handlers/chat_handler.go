package handlers

import (
	"net/http"

	"lingo-server/middleware"
	"lingo-server/services"
	"lingo-server/utils/errors"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// GetStreamToken issues a chat-provider token for the session user.
func (h *ChatHandler) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	token, err := h.chatService.GetStreamToken(identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
