package contract

import (
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
)

// OracleReply is either a final answer (no ToolCalls) or a request to run
// one or more operations. Content may be empty in the second case.
type OracleReply struct {
	Content   string                   `json:"content"`
	ToolCalls []conversationx.ToolCall `json:"tool_calls,omitempty"`
}

func (r OracleReply) IsFinal() bool {
	return len(r.ToolCalls) == 0
}

// ToolResult is the textual outcome of one tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Tool    string `json:"tool"`
	Content string `json:"content"`
	Failed  bool   `json:"failed,omitempty"`
}
