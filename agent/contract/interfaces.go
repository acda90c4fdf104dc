package contract

import (
	"context"

	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
)

type Oracle interface {
	Complete(ctx context.Context, msgs []conversationx.Message) (OracleReply, error)
}

// ToolGateway runs a batch of tool calls and returns exactly one result per
// call, in call order.
type ToolGateway interface {
	Execute(ctx context.Context, calls []conversationx.ToolCall) []ToolResult
}
