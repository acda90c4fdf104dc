package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
)

var (
	ErrInvalidSession = fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	ErrInvalidMessage = fmt.Errorf("%w: message is required", contractx.ErrValidation)
)

// Answer is the outcome of one turn.
type Answer struct {
	Text        string
	Rounds      int
	ToolCalls   int
	FailedTools int
	Degraded    bool
}

// Orchestrator runs the tool-invocation loop for one user message at a time
// per session.
type Orchestrator struct {
	store  conversationx.Store
	oracle contractx.Oracle
	tools  contractx.ToolGateway
	locker *conversationx.SessionLocker

	maxRounds     int
	oracleTimeout time.Duration
	preamble      string

	now func() time.Time
}

func New(
	store conversationx.Store,
	oracle contractx.Oracle,
	tools contractx.ToolGateway,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Orchestrator{
		store:         store,
		oracle:        oracle,
		tools:         tools,
		locker:        conversationx.NewSessionLocker(),
		maxRounds:     cfg.MaxRounds,
		oracleTimeout: cfg.OracleTimeout,
		preamble:      strings.TrimSpace(cfg.Preamble),
		now:           time.Now,
	}, nil
}

// HandleTurn appends the user message to the session, drives the oracle until
// it answers or the round cap is hit, and persists the extended conversation.
// When the turn fails nothing is persisted.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (Answer, error) {
	sessionID = strings.TrimSpace(sessionID)
	text = strings.TrimSpace(text)
	if sessionID == "" {
		return Answer{}, ErrInvalidSession
	}
	if text == "" {
		return Answer{}, ErrInvalidMessage
	}

	started := time.Now()
	logger := log.With().Str("session_id", sessionID).Logger()

	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", contractx.ErrTurnFailed, err)
	}
	defer unlock()

	stored, err := conversationx.GetOrCreate(ctx, o.store, sessionID, o.preamble, o.now())
	if err != nil {
		logger.Error().Err(err).Msg("load conversation failed")
		return Answer{}, fmt.Errorf("%w: load conversation: %w", contractx.ErrTurnFailed, err)
	}

	conv := stored.Clone()
	now := o.now()
	conv.Append(now, conversationx.UserMessage(text, now))

	answer, err := o.run(ctx, conv)
	if err != nil {
		logger.Error().
			Err(err).
			Int("rounds", answer.Rounds).
			Int("tool_calls", answer.ToolCalls).
			Int("failed_tools", answer.FailedTools).
			Dur("duration", time.Since(started)).
			Msg("turn aborted")
		return Answer{}, fmt.Errorf("%w: %w", contractx.ErrTurnFailed, err)
	}

	if err := o.store.Save(ctx, conv); err != nil {
		logger.Error().Err(err).Msg("save conversation failed")
		return Answer{}, fmt.Errorf("%w: save conversation: %w", contractx.ErrTurnFailed, err)
	}

	event := logger.Info()
	if answer.Degraded {
		event = logger.Warn()
	}
	event.
		Int("rounds", answer.Rounds).
		Int("tool_calls", answer.ToolCalls).
		Int("failed_tools", answer.FailedTools).
		Bool("degraded", answer.Degraded).
		Int("messages", conv.Len()).
		Dur("duration", time.Since(started)).
		Msg("turn completed")

	return answer, nil
}
