package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pictochat/backend/internal/auth"
	app_errors "pictochat/backend/internal/errors"
	"pictochat/backend/internal/interfaces"
	"pictochat/backend/internal/model"
	"pictochat/backend/internal/service"
)

// ChatHandler serves the stateless chat procedures and the runtime settings.
type ChatHandler struct {
	chats    interfaces.ChatService
	settings interfaces.SettingsService
}

func NewChatHandler(chats interfaces.ChatService, settings interfaces.SettingsService) *ChatHandler {
	return &ChatHandler{chats: chats, settings: settings}
}

func identityFrom(r *http.Request) (model.Identity, error) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		return model.Identity{}, app_errors.ErrUnauthorized
	}
	return identity, nil
}

// GetMe godoc
// @Summary      Current user
// @Description  Returns the profile of the authenticated user.
// @Tags         Users
// @Produce      json
// @Success      200  {object}  model.Identity
// @Failure      401  {object}  ErrorResponse
// @Router       /v1/me [get]
func (h *ChatHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, identity)
}

// CreateChat godoc
// @Summary      Create a chat
// @Description  Stores a new empty chat. The title is cut to 50 characters.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        request  body      CreateChatRequest  true  "Chat title"
// @Success      201      {object}  model.Chat
// @Failure      400      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Router       /v1/chats [post]
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req CreateChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	chat, err := h.chats.CreateChat(r.Context(), identity.Subject, req.Title)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, chat)
}

// GetChats godoc
// @Summary      List chats
// @Description  Returns the user's chats, newest first, with their messages.
// @Tags         Chats
// @Produce      json
// @Success      200  {array}   model.Chat
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	chats, err := h.chats.ListChats(r.Context(), identity.Subject)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// GetChat godoc
// @Summary      Get a chat
// @Description  Returns one chat with its messages in chronological order.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  model.Chat
// @Failure      403     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	chat, err := h.chats.GetChat(r.Context(), identity.Subject, chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chat)
}

// SendMessage godoc
// @Summary      Send a message
// @Description  Replies to a message in an existing chat and stores the turn.
// @Description  Image requests are detected from keywords unless is_image_request is set.
// @Description  A failed reply is answered with an unsent apology and nothing is stored.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        request  body      service.SendMessageRequest  true  "Message"
// @Success      200      {object}  service.SendMessageResult
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/chats/messages [post]
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req service.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	result, err := h.chats.SendMessage(r.Context(), identity.Subject, req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetSettings godoc
// @Summary      Get settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  service.Settings
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/settings [get]
func (h *ChatHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Update settings
// @Description  Replaces the system prompt, text model and image parameters.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      service.Settings  true  "New settings"
// @Success      200       {object}  StatusResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /v1/settings [put]
func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings service.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.settings.Save(r.Context(), &settings); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
