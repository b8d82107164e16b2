package http

import (
	"net/http"

	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
)

type ChatHandler struct {
	ChatService *service.ChatService
}

// HandleList returns the transcript.
//
//	@Summary		Chat history
//	@Description	Oldest first. A new transcript starts with the assistant's greeting.
//	@Tags			Chat
//	@Produce		json
//	@Success		200	{object}	ChatHistoryResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/chat/messages [get].
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, ChatHistoryResponse{Messages: h.ChatService.History(userID(r))})
}

// HandleSend posts a message and returns the assistant's reply.
//
//	@Summary		Send chat message
//	@Tags			Chat
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChatRequest	true	"Message"
//	@Success		201		{object}	ChatResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Empty message"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/chat/messages [post].
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	msg, reply, err := h.ChatService.Send(userID(r), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ChatResponse{Message: msg, Reply: reply})
}
