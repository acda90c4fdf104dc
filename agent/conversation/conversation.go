package conversation

import (
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one operation the oracle asked for. Arguments is the raw JSON
// object exactly as the oracle produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"` // assistant only
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func SystemMessage(content string, now time.Time) Message {
	return Message{Role: RoleSystem, Content: content, CreatedAt: now.UTC()}
}

func UserMessage(content string, now time.Time) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: now.UTC()}
}

func AssistantMessage(content string, calls []ToolCall, now time.Time) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: append([]ToolCall(nil), calls...),
		CreatedAt: now.UTC(),
	}
}

func ToolResultMessage(call ToolCall, content string, now time.Time) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		CreatedAt:  now.UTC(),
	}
}

// Conversation is the append-only history of one session.
type Conversation struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrOrphanToolResult   = errors.New("tool result without matching request")
	ErrUnansweredToolCall = errors.New("tool call without result")
	ErrInvalidRole        = errors.New("invalid message role")
)

// New starts a conversation holding only the system preamble.
func New(sessionID, preamble string, now time.Time) *Conversation {
	c := &Conversation{
		SessionID: sessionID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if preamble != "" {
		c.Messages = []Message{SystemMessage(preamble, now)}
	}
	return c
}

func (c *Conversation) Append(now time.Time, msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = now.UTC()
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	if c == nil || len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		out.Messages[i] = m
	}
	return &out
}

// Validate checks that every assistant tool call is answered by the tool
// result messages that immediately follow it, in request order.
func (c *Conversation) Validate() error {
	if c == nil {
		return nil
	}

	var pending []ToolCall
	for i, m := range c.Messages {
		switch m.Role {
		case RoleTool:
			if len(pending) == 0 {
				return fmt.Errorf("%w: message %d (tool_call_id=%s)", ErrOrphanToolResult, i, m.ToolCallID)
			}
			if pending[0].ID != m.ToolCallID {
				return fmt.Errorf("%w: message %d answers %s, expected %s", ErrOrphanToolResult, i, m.ToolCallID, pending[0].ID)
			}
			pending = pending[1:]
		case RoleSystem, RoleUser, RoleAssistant:
			if len(pending) > 0 {
				return fmt.Errorf("%w: %s before message %d", ErrUnansweredToolCall, pending[0].ID, i)
			}
			if m.Role == RoleAssistant {
				pending = append(pending, m.ToolCalls...)
			}
		default:
			return fmt.Errorf("%w: %q at message %d", ErrInvalidRole, m.Role, i)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %s", ErrUnansweredToolCall, pending[0].ID)
	}
	return nil
}
