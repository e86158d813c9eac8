// Package chat keeps the CareCoach conversation transcript and drives
// streamed replies from the AI service into it.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/careplanner/backend/internal/ai"
	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/internal/metrics"
	"github.com/careplanner/backend/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyHistory is the storage key of the transcript
const KeyHistory = "careplanner_chat_history"

const (
	welcomeID   = "welcome"
	welcomeText = "Hello! I'm CareCoach. How are you feeling today? I can help you understand your vitals or give healthy lifestyle tips."
)

var (
	ErrMessageNotFound    = errors.New("chat message not found")
	ErrFeedbackNotAllowed = errors.New("feedback can only be left on assistant replies")
	ErrInvalidFeedback    = errors.New("invalid feedback value")
)

// Transcript is the persisted list of chat messages. It is safe for
// concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	storage  kvstore.Storage
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	messages []model.ChatMessage
}

// Option configures a Transcript
type Option func(*Transcript)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) { t.now = now }
}

// WithIDGenerator overrides the message id generator
func WithIDGenerator(newID func() string) Option {
	return func(t *Transcript) { t.newID = newID }
}

// Open loads the transcript from storage. A missing, empty or unreadable
// transcript starts over with the welcome message.
func Open(ctx context.Context, storage kvstore.Storage, logger *zap.Logger, opts ...Option) *Transcript {
	t := &Transcript{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.messages = []model.ChatMessage{t.welcome()}

	raw, err := storage.GetItem(ctx, KeyHistory)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		logger.Error("failed to read chat history", zap.Error(err))
	default:
		var saved []model.ChatMessage
		if err := json.Unmarshal(raw, &saved); err != nil {
			logger.Error("failed to parse chat history", zap.Error(err))
		} else if len(saved) > 0 {
			t.messages = saved
		}
	}

	return t
}

func (t *Transcript) clock() time.Time {
	return t.now().UTC().Truncate(time.Millisecond)
}

func (t *Transcript) welcome() model.ChatMessage {
	return model.ChatMessage{
		ID:        welcomeID,
		Role:      model.ChatRoleModel,
		Text:      welcomeText,
		Timestamp: t.clock(),
	}
}

// Messages returns a copy of the transcript in order
func (t *Transcript) Messages() []model.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.ChatMessage{}, t.messages...)
}

// Append adds a message and persists the transcript
func (t *Transcript) Append(role model.ChatRole, text string) model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := model.ChatMessage{
		ID:        t.newID(),
		Role:      role,
		Text:      text,
		Timestamp: t.clock(),
	}
	t.messages = append(t.messages, msg)
	t.persist()
	return msg
}

// SetText replaces the text of message id
func (t *Transcript) SetText(id, text string) (model.ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.index(id)
	if i < 0 {
		return model.ChatMessage{}, ErrMessageNotFound
	}
	t.messages[i].Text = text
	t.persist()
	return t.messages[i], nil
}

// ToggleFeedback sets the feedback on an assistant reply; sending the
// current value again clears it
func (t *Transcript) ToggleFeedback(id string, feedback model.ChatFeedback) (model.ChatMessage, error) {
	if feedback != model.ChatFeedbackHelpful && feedback != model.ChatFeedbackUnhelpful {
		return model.ChatMessage{}, ErrInvalidFeedback
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.index(id)
	if i < 0 {
		return model.ChatMessage{}, ErrMessageNotFound
	}
	msg := &t.messages[i]
	if msg.Role != model.ChatRoleModel || msg.ID == welcomeID {
		return model.ChatMessage{}, ErrFeedbackNotAllowed
	}

	if msg.Feedback == feedback {
		msg.Feedback = ""
	} else {
		msg.Feedback = feedback
	}
	t.persist()
	return *msg, nil
}

// Clear resets the transcript to the welcome message and removes it from
// storage
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = []model.ChatMessage{t.welcome()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.storage.RemoveItem(ctx, KeyHistory); err != nil {
		t.logger.Error("failed to remove chat history", zap.Error(err))
		metrics.RecordStorageWriteFailure(KeyHistory)
	}
}

// History converts the transcript into model turns, leaving out the welcome
// message
func (t *Transcript) History() []ai.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]ai.Turn, 0, len(t.messages))
	for _, m := range t.messages {
		if m.ID == welcomeID {
			continue
		}
		turns = append(turns, ai.Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}

func (t *Transcript) index(id string) int {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Transcript) persist() {
	data, err := json.Marshal(t.messages)
	if err != nil {
		t.logger.Error("failed to serialize chat history", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.storage.SetItem(ctx, KeyHistory, data); err != nil {
		t.logger.Error("failed to save chat history", zap.Error(err))
		metrics.RecordStorageWriteFailure(KeyHistory)
	}
}
