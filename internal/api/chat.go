package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/orchestrator"
)

// maxQuestionBytes bounds the request body; questions are short.
const maxQuestionBytes = 16 << 10

// Processor runs the question pipeline.
type Processor interface {
	Process(ctx context.Context, in orchestrator.Input) orchestrator.Output
}

// chatRequest is the POST /api/v1/chat body.
type chatRequest struct {
	Question       string `json:"question"`
	UserEmail      string `json:"user_email"`
	UserName       string `json:"user_name"`
	ConversationID string `json:"conversation_id"`
}

// chatResponse mirrors orchestrator output plus the conversation id so
// callers can continue the thread.
type chatResponse struct {
	Answer         string   `json:"answer"`
	SourceNodes    []string `json:"source_nodes"`
	QueryType      string   `json:"query_type"`
	ConversationID string   `json:"conversation_id"`
}

type chatHandler struct {
	processor Processor
	logger    log.Logger
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", h.logger)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	out := h.processor.Process(r.Context(), orchestrator.Input{
		Question:       req.Question,
		ConversationID: req.ConversationID,
		UserName:       req.UserName,
		UserEmail:      req.UserEmail,
	})

	sources := out.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Answer:         out.Answer,
		SourceNodes:    sources,
		QueryType:      out.Intent,
		ConversationID: req.ConversationID,
	}, h.logger)
}
