package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	orchestratorx "github.com/tanpawarit/Hospital-Care-Assistant/agent/orchestrator"
)

const failureAnswer = "I'm sorry, I encountered an error processing your request. Please try again."

// TurnHandler runs one conversation turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, text string) (orchestratorx.Answer, error)
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChatHandler struct {
	turns TurnHandler
}

func NewChatHandler(turns TurnHandler) *ChatHandler {
	return &ChatHandler{turns: turns}
}

func (h *ChatHandler) Handle(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session_id and message are required"})
		return
	}

	answer, err := h.turns.HandleTurn(c.Request.Context(), req.SessionID, req.Message)
	switch {
	case errors.Is(err, contractx.ErrValidation) && !errors.Is(err, contractx.ErrTurnFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("chat turn failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: failureAnswer})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Answer: answer.Text})
}
