package handler

import (
	"errors"
	"net/http"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/chat"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SSE event names of a streamed reply
const (
	EventChunk = "chunk"
	EventDone  = "done"
)

// ChunkEvent is the payload of one streamed fragment
type ChunkEvent struct {
	Text string `json:"text"`
}

// ChatHandler serves the patient's assistant conversation
type ChatHandler struct {
	session *chat.Session
	store   *store.Store
	auditor *audit.Logger
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(session *chat.Session, s *store.Store, auditor *audit.Logger, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		session: session,
		store:   s,
		auditor: auditor,
		logger:  logger,
	}
}

// GetChat returns the transcript
func (h *ChatHandler) GetChat(c *gin.Context) {
	if _, ok := authorize(c, model.RolePatient); !ok {
		return
	}
	c.JSON(http.StatusOK, h.session.Transcript().Messages())
}

// SendChatMessage streams the assistant's reply as server-sent events: one
// chunk event per fragment, then a done event carrying the stored message
func (h *ChatHandler) SendChatMessage(c *gin.Context) {
	user, ok := authorize(c, model.RolePatient)
	if !ok {
		return
	}

	var req api.ChatRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	patientContext := ""
	if patient, found := h.store.Patient(user.ID); found {
		patientContext = chat.BuildPatientContext(patient)
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	reply, err := h.session.Send(c.Request.Context(), req.Text, patientContext, func(chunk string) {
		c.SSEvent(EventChunk, ChunkEvent{Text: chunk})
		c.Writer.Flush()
	})
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Message is empty", err)
		return
	case errors.Is(err, chat.ErrBusy):
		respondError(c, http.StatusConflict, api.CodeConflict, "A reply is already being generated", err)
		return
	case err != nil:
		h.logger.Error("failed to store chat reply", zap.Error(err))
		_ = c.Error(err)
		c.SSEvent("error", api.ErrorResponse{Code: api.CodeInternal, Message: "Failed to store reply"})
		return
	}

	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceChat, reply.ID)

	c.SSEvent(EventDone, reply)
	c.Writer.Flush()
}

// SetChatFeedback toggles helpful/unhelpful feedback on an assistant reply
func (h *ChatHandler) SetChatFeedback(c *gin.Context, id string) {
	if _, ok := authorize(c, model.RolePatient); !ok {
		return
	}

	var req api.ChatFeedbackRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	msg, err := h.session.Transcript().ToggleFeedback(id, req.Feedback)
	switch {
	case errors.Is(err, chat.ErrMessageNotFound):
		notFound(c, "Message")
		return
	case err != nil:
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Feedback not accepted", err)
		return
	}
	recordAudit(c, h.auditor, audit.OperationUpdate, audit.ResourceChat, id)

	c.JSON(http.StatusOK, msg)
}

// ClearChat resets the transcript to the welcome message
func (h *ChatHandler) ClearChat(c *gin.Context) {
	if _, ok := authorize(c, model.RolePatient); !ok {
		return
	}

	h.session.Transcript().Clear()
	recordAudit(c, h.auditor, audit.OperationDelete, audit.ResourceChat, chat.KeyHistory)

	c.Status(http.StatusNoContent)
}
