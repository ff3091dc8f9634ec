package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vidgate/vidgate/internal/usecase"
)

// telegramUpdate mirrors the slice of the Bot API update object the
// approval flow consumes.
type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int    `json:"message_id"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		ReplyToMessage *struct {
			MessageID int `json:"message_id"`
		} `json:"reply_to_message"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// WebhookHandler receives Telegram webhook deliveries.
type WebhookHandler struct {
	svc    usecase.ApprovalService
	secret string
}

// NewWebhookHandler creates a new WebhookHandler. secret may be empty when
// webhook registration did not set one.
func NewWebhookHandler(svc usecase.ApprovalService, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

// Receive handles POST /telegram/webhook. The delivery is acknowledged
// with 200 regardless of what handling it triggers; Telegram retries
// anything else and the approval flow is idempotent about retries anyway.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			Error(w, http.StatusUnauthorized, "bad_secret", "Secret token mismatch")
			return
		}
	}

	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("discarding malformed webhook update", "error", err)
		JSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err := h.svc.HandleUpdate(r.Context(), toChatUpdate(update)); err != nil {
		slog.Error("webhook update handling failed", "update_id", update.UpdateID, "error", err)
	}

	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func toChatUpdate(u telegramUpdate) usecase.ChatUpdate {
	out := usecase.ChatUpdate{UpdateID: u.UpdateID}

	if u.CallbackQuery != nil && u.CallbackQuery.Message != nil {
		out.Callback = &usecase.ChatCallback{
			ID:        u.CallbackQuery.ID,
			ChatID:    u.CallbackQuery.Message.Chat.ID,
			MessageID: u.CallbackQuery.Message.MessageID,
			Data:      u.CallbackQuery.Data,
		}
		return out
	}

	if u.Message != nil {
		msg := &usecase.ChatMessage{
			ChatID:    u.Message.Chat.ID,
			MessageID: u.Message.MessageID,
			Text:      u.Message.Text,
		}
		if u.Message.ReplyToMessage != nil {
			msg.ReplyTo = u.Message.ReplyToMessage.MessageID
		}
		out.Message = msg
	}
	return out
}
