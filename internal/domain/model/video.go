package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State represents where a video sits in its approval lifecycle.
type State string

const (
	StateAwaitingTitle   State = "AWAITING_TITLE"
	StateAwaitingPrivacy State = "AWAITING_PRIVACY"
	StateReadyToUpload   State = "READY_TO_UPLOAD"
	StatePublishing      State = "PUBLISHING"
	StatePublished       State = "PUBLISHED"
	StateFailed          State = "FAILED"
	StateDeleted         State = "DELETED"
)

// Valid state transitions:
// AWAITING_TITLE -> AWAITING_PRIVACY -> READY_TO_UPLOAD -> PUBLISHING -> PUBLISHED
//                                                                    \-> FAILED
// READY_TO_UPLOAD -> AWAITING_PRIVACY (backing out of the delete prompt)
// DELETED is reachable from every state except PUBLISHING; a publish in
// flight must reach PUBLISHED or FAILED before a delete is accepted.
var validTransitions = map[State][]State{
	StateAwaitingTitle:   {StateAwaitingPrivacy, StateDeleted},
	StateAwaitingPrivacy: {StateReadyToUpload, StateDeleted},
	StateReadyToUpload:   {StatePublishing, StateAwaitingPrivacy, StateDeleted},
	StatePublishing:      {StatePublished, StateFailed},
	StatePublished:       {StateDeleted},
	StateFailed:          {StateDeleted},
	StateDeleted:         {},
}

func (s State) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the record has left the live set.
func (s State) IsTerminal() bool {
	return s == StatePublished || s == StateDeleted
}

func (s State) String() string {
	return string(s)
}

// Privacy is the visibility level chosen for a video on the hosting platform.
type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyUnlisted Privacy = "unlisted"
	PrivacyPrivate  Privacy = "private"
)

// ParsePrivacy validates a privacy value received from an external event.
func ParsePrivacy(s string) (Privacy, error) {
	switch Privacy(s) {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate:
		return Privacy(s), nil
	default:
		return "", ErrInvalidPrivacy
	}
}

// ChatRef points at the chat message driving this video's approval flow.
type ChatRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// VideoRecord is the durable unit representing one video's journey from
// transfer-complete to published-or-deleted.
type VideoRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	SizeBytes   int64     `json:"size_bytes"`
	Duration    string    `json:"duration,omitempty"`
	RecordedAt  string    `json:"recorded_at,omitempty"`
	Title       string    `json:"title,omitempty"`
	Privacy     Privacy   `json:"privacy,omitempty"`
	State       State     `json:"state"`
	Chat        *ChatRef  `json:"chat,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrEmptyFilename     = errors.New("filename cannot be empty")
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrInvalidPrivacy    = errors.New("privacy must be public, unlisted or private")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// MaxTitleLength is the bound applied to titles before they reach the
// hosting platform.
const MaxTitleLength = 100

// NewVideoRecord creates a record for a freshly assembled file, awaiting a
// title from the approver.
func NewVideoRecord(filename, storagePath string, sizeBytes int64) (*VideoRecord, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	return &VideoRecord{
		ID:          uuid.New().String(),
		Filename:    filename,
		StoragePath: storagePath,
		SizeBytes:   sizeBytes,
		State:       StateAwaitingTitle,
		CreatedAt:   time.Now(),
	}, nil
}

// TransitionTo attempts to move the record to the next state.
// Returns ErrInvalidTransition if the move is not legal from the current state.
func (v *VideoRecord) TransitionTo(next State) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !v.State.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	v.State = next
	return nil
}

// SetTitle stores a bounded title. Legal only while awaiting one.
func (v *VideoRecord) SetTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if err := v.TransitionTo(StateAwaitingPrivacy); err != nil {
		return err
	}
	v.Title = TruncateTitle(title)
	return nil
}

// SetPrivacy stores the chosen privacy level. Legal only while awaiting one.
func (v *VideoRecord) SetPrivacy(p Privacy) error {
	if err := v.TransitionTo(StateReadyToUpload); err != nil {
		return err
	}
	v.Privacy = p
	return nil
}

// IsLive reports whether the record still occupies its filename slot.
func (v *VideoRecord) IsLive() bool {
	return !v.State.IsTerminal()
}

// DisplayTitle returns the title, falling back to the original filename.
func (v *VideoRecord) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.Filename
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (v *VideoRecord) Clone() *VideoRecord {
	c := *v
	if v.Chat != nil {
		chat := *v.Chat
		c.Chat = &chat
	}
	return &c
}

// TruncateTitle bounds a title without splitting UTF-8 sequences.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > MaxTitleLength {
		return string(runes[:MaxTitleLength])
	}
	return title
}
