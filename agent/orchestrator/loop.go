package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
)

type loopState int

const (
	stateAwaitingOracle loopState = iota
	stateTerminal
)

// run mutates conv in place. On error conv may hold a partial round and must
// be discarded by the caller.
func (o *Orchestrator) run(ctx context.Context, conv *conversationx.Conversation) (Answer, error) {
	var answer Answer
	state := stateAwaitingOracle

	for state == stateAwaitingOracle {
		if answer.Rounds == o.maxRounds {
			now := o.now()
			conv.Append(now, conversationx.AssistantMessage(DegradedAnswer, nil, now))
			answer.Text = DegradedAnswer
			answer.Degraded = true
			state = stateTerminal
			continue
		}
		answer.Rounds++

		reply, err := o.complete(ctx, conv.Messages)
		if err != nil {
			return answer, fmt.Errorf("round %d: %w", answer.Rounds, err)
		}

		now := o.now()
		if reply.IsFinal() {
			conv.Append(now, conversationx.AssistantMessage(reply.Content, nil, now))
			answer.Text = reply.Content
			state = stateTerminal
			continue
		}

		conv.Append(now, conversationx.AssistantMessage(reply.Content, reply.ToolCalls, now))
		results := o.tools.Execute(ctx, reply.ToolCalls)
		if len(results) != len(reply.ToolCalls) {
			return answer, fmt.Errorf("%w: %d results for %d tool calls", contractx.ErrValidation, len(results), len(reply.ToolCalls))
		}

		now = o.now()
		failed := 0
		for i, call := range reply.ToolCalls {
			conv.Append(now, conversationx.ToolResultMessage(call, results[i].Content, now))
			if results[i].Failed {
				failed++
			}
		}
		answer.ToolCalls += len(reply.ToolCalls)
		answer.FailedTools += failed

		log.Debug().
			Str("session_id", conv.SessionID).
			Int("round", answer.Rounds).
			Int("tool_calls", len(reply.ToolCalls)).
			Int("failed_tools", failed).
			Msg("tool round completed")
	}

	return answer, nil
}

func (o *Orchestrator) complete(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
	ctx, cancel := context.WithTimeout(ctx, o.oracleTimeout)
	defer cancel()
	return o.oracle.Complete(ctx, msgs)
}
