package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/careplanner/backend/internal/ai"
	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
)

// ConnectionErrorMarker is appended to a reply whose stream failed
const ConnectionErrorMarker = "[Connection Error: Please try again]"

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a reply is already being generated")
)

// Chatter starts streamed assistant replies; *ai.Service implements it
type Chatter interface {
	StreamChat(ctx context.Context, history []ai.Turn, message, patientContext string) (ai.Stream, error)
}

// Collect concatenates stream fragments in arrival order, calling onChunk
// with each one. When the stream fails the partial text is kept and the
// connection error marker appended (and passed to onChunk); the stream error
// is returned alongside.
func Collect(stream ai.Stream, onChunk func(string)) (string, error) {
	var sb strings.Builder
	emit := func(chunk string) {
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	for stream.Next() {
		emit(stream.Current())
	}

	err := stream.Err()
	if err != nil {
		emit(errorSuffix(sb.Len() > 0))
	}
	return sb.String(), err
}

func errorSuffix(hasPartial bool) string {
	if hasPartial {
		return "\n\n" + ConnectionErrorMarker
	}
	return ConnectionErrorMarker
}

// Session sends patient messages to the assistant and records the exchange
// in the transcript. One reply is generated at a time.
type Session struct {
	transcript *Transcript
	chatter    Chatter
	logger     *zap.Logger
	sending    sync.Mutex
}

// NewSession creates a chat session over transcript
func NewSession(transcript *Transcript, chatter Chatter, logger *zap.Logger) *Session {
	return &Session{transcript: transcript, chatter: chatter, logger: logger}
}

// Transcript returns the session's transcript
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Send appends the user message and an empty assistant placeholder, streams
// the reply through onChunk and stores the final text. The returned message
// is the completed assistant reply; AI failures surface as the inline
// marker, not as an error.
func (s *Session) Send(ctx context.Context, text, patientContext string, onChunk func(string)) (model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}
	if !s.sending.TryLock() {
		return model.ChatMessage{}, ErrBusy
	}
	defer s.sending.Unlock()

	history := s.transcript.History()
	s.transcript.Append(model.ChatRoleUser, text)
	placeholder := s.transcript.Append(model.ChatRoleModel, "")

	reply := s.stream(ctx, history, text, patientContext, onChunk)

	return s.transcript.SetText(placeholder.ID, reply)
}

func (s *Session) stream(ctx context.Context, history []ai.Turn, text, patientContext string, onChunk func(string)) string {
	stream, err := s.chatter.StreamChat(ctx, history, text, patientContext)
	if err != nil {
		s.logger.Error("chat request failed", zap.Error(err))
		if onChunk != nil {
			onChunk(ConnectionErrorMarker)
		}
		return ConnectionErrorMarker
	}
	defer stream.Close()

	reply, err := Collect(stream, onChunk)
	if err != nil {
		s.logger.Error("chat stream interrupted",
			zap.Int("reply_length", len(reply)),
			zap.Error(err),
		)
	}
	return reply
}
