package repository

import "context"

// Button is one tappable choice on an inline keyboard. Data is the opaque
// callback payload echoed back through the webhook.
type Button struct {
	Text string
	Data string
}

// Keyboard is rendered as rows of buttons under a chat message.
type Keyboard [][]Button

// Messenger is the outbound half of the chat-bot boundary. Delivery is
// best-effort: a failed notification must never fail the operation that
// produced it.
type Messenger interface {
	// Send posts a new message and returns its message id.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)

	// Edit replaces the text (and keyboard) of an existing message.
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error

	// EditCaption replaces the caption of an existing media message.
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb Keyboard) error

	// AnswerCallback acknowledges a button press so the chat client stops
	// its spinner. text is optional.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
