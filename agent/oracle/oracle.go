// Package oracle adapts an eino tool-calling chat model to the control loop.
// It converts conversation history to eino messages, applies the history
// window and classifies the model reply as a final answer or a batch of
// tool calls.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
)

type Option func(*Client)

// WithMaxHistory bounds the non-system messages sent per call. Zero keeps
// the whole conversation.
func WithMaxHistory(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxHistory = n
		}
	}
}

type Client struct {
	runner     compose.Runnable[[]conversationx.Message, *schema.Message]
	maxHistory int
}

var _ contractx.Oracle = (*Client)(nil)

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, tools []*schema.ToolInfo, opts ...Option) (*Client, error) {
	if chatModel == nil {
		return nil, errors.New("oracle: chat model is required")
	}
	if len(tools) == 0 {
		return nil, errors.New("oracle: at least one tool declaration is required")
	}

	c := &Client{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := compileGraph(ctx, toolModel, c.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("%w: compile oracle graph: %v", contractx.ErrModelInvoke, err)
	}
	c.runner = runner
	return c, nil
}

func compileGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	maxHistory int,
) (compose.Runnable[[]conversationx.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]conversationx.Message, *schema.Message]()

	if err := graph.AddLambdaNode("window",
		compose.InvokableLambda(func(ctx context.Context, msgs []conversationx.Message) ([]*schema.Message, error) {
			return toSchemaMessages(conversationx.Window(msgs, maxHistory))
		}),
	); err != nil {
		return nil, fmt.Errorf("add window node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "window"); err != nil {
		return nil, fmt.Errorf("add edge start->window: %w", err)
	}
	if err := graph.AddEdge("window", "model"); err != nil {
		return nil, fmt.Errorf("add edge window->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	return graph.Compile(ctx, compose.WithGraphName("oracle.graph"))
}

// Complete sends the conversation to the model and returns its reply.
func (c *Client) Complete(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
	if len(msgs) == 0 {
		return contractx.OracleReply{}, fmt.Errorf("%w: conversation is empty", contractx.ErrValidation)
	}

	msg, err := c.runner.Invoke(ctx, msgs)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			return contractx.OracleReply{}, err
		}
		return contractx.OracleReply{}, fmt.Errorf("%w: oracle invoke: %v", contractx.ErrModelInvoke, err)
	}
	return toReply(msg)
}

func toReply(msg *schema.Message) (contractx.OracleReply, error) {
	if msg == nil {
		return contractx.OracleReply{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}

	reply := contractx.OracleReply{Content: strings.TrimSpace(msg.Content)}
	for i, tc := range msg.ToolCalls {
		name := strings.TrimSpace(tc.Function.Name)
		if name == "" {
			return contractx.OracleReply{}, fmt.Errorf("%w: tool call %d has no name", contractx.ErrSchemaViolation, i)
		}
		id := strings.TrimSpace(tc.ID)
		if id == "" {
			id = uuid.NewString()
		}
		reply.ToolCalls = append(reply.ToolCalls, conversationx.ToolCall{
			ID:        id,
			Name:      name,
			Arguments: tc.Function.Arguments,
		})
	}

	if reply.IsFinal() && reply.Content == "" {
		return contractx.OracleReply{}, fmt.Errorf("%w: reply has neither content nor tool calls", contractx.ErrSchemaViolation)
	}
	return reply, nil
}

func toSchemaMessages(msgs []conversationx.Message) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case conversationx.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case conversationx.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case conversationx.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, toSchemaToolCalls(m.ToolCalls)))
		case conversationx.RoleTool:
			out = append(out, schema.ToolMessage(m.Content, m.ToolCallID))
		default:
			return nil, fmt.Errorf("%w: message %d has role %q", contractx.ErrValidation, i, m.Role)
		}
	}
	return out, nil
}

func toSchemaToolCalls(calls []conversationx.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, tc := range calls {
		args := tc.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		out = append(out, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}
	return out
}
