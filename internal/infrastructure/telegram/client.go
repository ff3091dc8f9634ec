// Package telegram implements the outbound chat boundary against the
// Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vidgate/vidgate/internal/domain/repository"
)

const defaultBaseURL = "https://api.telegram.org"

// ClientConfig holds configuration for the Telegram client.
type ClientConfig struct {
	Token   string
	BaseURL string        // overridable for tests; defaults to the public API
	Timeout time.Duration // per-request timeout
}

// Client implements repository.Messenger over the Bot API HTTP surface.
// Message edits are retried with exponential backoff because they race
// with Telegram-side rate limits during publish progress updates.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string

	// retryInterval seeds the edit retry backoff; shortened in tests.
	retryInterval time.Duration
}

// Compile-time verification that Client implements repository.Messenger.
var _ repository.Messenger = (*Client)(nil)

// NewClient creates a Telegram Bot API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         cfg.Token,
		retryInterval: 500 * time.Millisecond,
	}
}

// inlineButton mirrors the Bot API inline keyboard button shape.
type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// replyMarkup wraps a keyboard for the Bot API payload.
type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func toReplyMarkup(kb repository.Keyboard) *replyMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]inlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineButton{Text: b.Text, CallbackData: b.Data})
		}
		rows = append(rows, buttons)
	}
	return &replyMarkup{InlineKeyboard: rows}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send posts a new message and returns its message id.
func (c *Client) Send(ctx context.Context, chatID int64, text string, kb repository.Keyboard) (int, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup := toReplyMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}

	result, err := c.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}

	var msg struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("decode sendMessage result: %w", err)
	}
	return msg.MessageID, nil
}

// Edit replaces the text of an existing message, retrying transient
// failures. Telegram's "message is not modified" complaint is success:
// the message already reads as requested.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, kb repository.Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup := toReplyMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := c.call(ctx, "editMessageText", payload)
		if err != nil && !strings.Contains(err.Error(), "message is not modified") {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(5))
	return err
}

// EditCaption replaces the caption of an existing media message.
func (c *Client) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb repository.Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if markup := toReplyMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}

	_, err := c.call(ctx, "editMessageCaption", payload)
	return err
}

// AnswerCallback acknowledges a button press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}

	_, err := c.call(ctx, "answerCallbackQuery", payload)
	return err
}

// RegisterWebhook points the bot's webhook at url. secret, when set, is
// echoed back by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) RegisterWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]any{
		"url": url,
	}
	if secret != "" {
		payload["secret_token"] = secret
	}

	_, err := c.call(ctx, "setWebhook", payload)
	return err
}

// call performs one Bot API request and unwraps the response envelope.
func (c *Client) call(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%s rejected: %s", method, envelope.Description)
	}
	return envelope.Result, nil
}
