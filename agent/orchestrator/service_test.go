package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
	"github.com/tanpawarit/Hospital-Care-Assistant/agent/hospital/hospitaltest"
	toolx "github.com/tanpawarit/Hospital-Care-Assistant/agent/tool"
)

type scriptedOracle struct {
	mu     sync.Mutex
	script func(call int, msgs []conversationx.Message) (contractx.OracleReply, error)
	calls  int
	seen   [][]conversationx.Message
}

func (f *scriptedOracle) Complete(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.seen = append(f.seen, append([]conversationx.Message(nil), msgs...))
	f.mu.Unlock()
	return f.script(n, msgs)
}

type recordingTools struct {
	mu      sync.Mutex
	batches [][]conversationx.ToolCall
}

func (f *recordingTools) Execute(_ context.Context, calls []conversationx.ToolCall) []contractx.ToolResult {
	f.mu.Lock()
	f.batches = append(f.batches, calls)
	f.mu.Unlock()

	out := make([]contractx.ToolResult, 0, len(calls))
	for _, c := range calls {
		out = append(out, contractx.ToolResult{CallID: c.ID, Tool: c.Name, Content: "result of " + c.ID})
	}
	return out
}

func final(text string) contractx.OracleReply {
	return contractx.OracleReply{Content: text}
}

func toolReply(ids ...string) contractx.OracleReply {
	reply := contractx.OracleReply{}
	for _, id := range ids {
		reply.ToolCalls = append(reply.ToolCalls, conversationx.ToolCall{ID: id, Name: "list_doctors", Arguments: "{}"})
	}
	return reply
}

func newTestOrchestrator(t *testing.T, store conversationx.Store, oracle contractx.Oracle, tools contractx.ToolGateway, cfg Config) *Orchestrator {
	t.Helper()

	if cfg.Preamble == "" {
		cfg.Preamble = "You are a hospital assistant."
	}
	o, err := New(store, oracle, tools, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func roles(msgs []conversationx.Message) []conversationx.Role {
	out := make([]conversationx.Role, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role)
	}
	return out
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	store := conversationx.NewMemoryStore()
	oracle := &scriptedOracle{}
	tools := &recordingTools{}

	if _, err := New(nil, oracle, tools, Config{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := New(store, nil, tools, Config{}); err == nil {
		t.Fatal("expected error without oracle")
	}
	if _, err := New(store, oracle, nil, Config{}); err == nil {
		t.Fatal("expected error without tools")
	}
	if _, err := New(store, oracle, tools, Config{MaxRounds: -1}); err == nil {
		t.Fatal("expected error for negative MaxRounds")
	}

	o, err := New(store, oracle, tools, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if o.maxRounds != defaultMaxRounds || o.oracleTimeout != defaultOracleTimeout {
		t.Fatalf("defaults not applied: rounds=%d timeout=%s", o.maxRounds, o.oracleTimeout)
	}
}

func TestHandleTurnRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{}
	o := newTestOrchestrator(t, conversationx.NewMemoryStore(), oracle, &recordingTools{}, Config{})

	if _, err := o.HandleTurn(context.Background(), " ", "hi"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := o.HandleTurn(context.Background(), "s1", "\n"); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if !errors.Is(ErrInvalidMessage, contractx.ErrValidation) {
		t.Fatal("input errors must match ErrValidation")
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle must not be called, got %d calls", oracle.calls)
	}
}

func TestHandleTurnFinalAnswer(t *testing.T) {
	t.Parallel()

	store := conversationx.NewMemoryStore()
	oracle := &scriptedOracle{script: func(int, []conversationx.Message) (contractx.OracleReply, error) {
		return final("Hello! How can I help?"), nil
	}}
	tools := &recordingTools{}
	o := newTestOrchestrator(t, store, oracle, tools, Config{})

	answer, err := o.HandleTurn(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if answer.Text != "Hello! How can I help?" || answer.Rounds != 1 || answer.ToolCalls != 0 || answer.Degraded {
		t.Fatalf("unexpected answer: %#v", answer)
	}
	if len(tools.batches) != 0 {
		t.Fatal("tools must not run for a final answer")
	}

	conv, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := roles(conv.Messages)
	want := []conversationx.Role{conversationx.RoleSystem, conversationx.RoleUser, conversationx.RoleAssistant}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}

	// The next turn sees the earlier exchange.
	if _, err := o.HandleTurn(context.Background(), "s1", "thanks"); err != nil {
		t.Fatalf("second HandleTurn() error = %v", err)
	}
	if n := len(oracle.seen[1]); n != 4 {
		t.Fatalf("second turn sent %d messages, want 4", n)
	}
}

func TestHandleTurnToolRoundsKeepOrder(t *testing.T) {
	t.Parallel()

	store := conversationx.NewMemoryStore()
	oracle := &scriptedOracle{script: func(call int, msgs []conversationx.Message) (contractx.OracleReply, error) {
		switch call {
		case 1:
			return toolReply("a", "b"), nil
		case 2:
			return toolReply("c"), nil
		default:
			return final("All done."), nil
		}
	}}
	tools := &recordingTools{}
	o := newTestOrchestrator(t, store, oracle, tools, Config{})

	answer, err := o.HandleTurn(context.Background(), "s1", "book me in")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if answer.Rounds != 3 || answer.ToolCalls != 3 || answer.Text != "All done." {
		t.Fatalf("unexpected answer: %#v", answer)
	}

	// Before every oracle call each earlier request has its result, in order.
	second := oracle.seen[1]
	tail := second[len(second)-3:]
	if tail[0].Role != conversationx.RoleAssistant || len(tail[0].ToolCalls) != 2 {
		t.Fatalf("unexpected assistant message: %#v", tail[0])
	}
	if tail[1].ToolCallID != "a" || tail[2].ToolCallID != "b" {
		t.Fatalf("results out of order: %s, %s", tail[1].ToolCallID, tail[2].ToolCallID)
	}
	if tail[1].Content != "result of a" {
		t.Fatalf("unexpected result content %q", tail[1].Content)
	}

	conv, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := conv.Validate(); err != nil {
		t.Fatalf("stored conversation invalid: %v", err)
	}
	// system, user, assistant(a,b), tool a, tool b, assistant(c), tool c, assistant
	if conv.Len() != 8 {
		t.Fatalf("stored %d messages, want 8", conv.Len())
	}
}

func TestHandleTurnStopsAtRoundCap(t *testing.T) {
	t.Parallel()

	store := conversationx.NewMemoryStore()
	oracle := &scriptedOracle{script: func(call int, _ []conversationx.Message) (contractx.OracleReply, error) {
		return toolReply(fmt.Sprintf("call-%d", call)), nil
	}}
	o := newTestOrchestrator(t, store, oracle, &recordingTools{}, Config{MaxRounds: 3})

	answer, err := o.HandleTurn(context.Background(), "s1", "loop forever")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !answer.Degraded || answer.Text != DegradedAnswer || answer.Rounds != 3 {
		t.Fatalf("unexpected answer: %#v", answer)
	}
	if oracle.calls != 3 {
		t.Fatalf("oracle called %d times, want 3", oracle.calls)
	}

	conv, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	last, _ := conv.Last()
	if last.Role != conversationx.RoleAssistant || last.Content != DegradedAnswer {
		t.Fatalf("unexpected last message: %#v", last)
	}
}

func TestHandleTurnOracleErrorLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := conversationx.NewMemoryStore()
	fail := false
	oracle := &scriptedOracle{script: func(call int, _ []conversationx.Message) (contractx.OracleReply, error) {
		if fail && call == 3 {
			return contractx.OracleReply{}, fmt.Errorf("%w: upstream 503", contractx.ErrModelInvoke)
		}
		if call == 2 {
			return toolReply("x"), nil
		}
		return final("ok"), nil
	}}
	o := newTestOrchestrator(t, store, oracle, &recordingTools{}, Config{})

	if _, err := o.HandleTurn(ctx, "s1", "first"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	before, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	fail = true
	_, err = o.HandleTurn(ctx, "s1", "second")
	if !errors.Is(err, contractx.ErrTurnFailed) || !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrTurnFailed wrapping ErrModelInvoke, got %v", err)
	}

	after, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if after.Len() != before.Len() {
		t.Fatalf("aborted turn changed the conversation: %d -> %d messages", before.Len(), after.Len())
	}

	// A failing first turn never creates the conversation.
	failing := newTestOrchestrator(t, store, &scriptedOracle{script: func(int, []conversationx.Message) (contractx.OracleReply, error) {
		return contractx.OracleReply{}, errors.New("boom")
	}}, &recordingTools{}, Config{})
	if _, err := failing.HandleTurn(ctx, "s2", "hello"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := store.Load(ctx, "s2"); !errors.Is(err, conversationx.ErrConversationNotFound) {
		t.Fatalf("expected no stored conversation, got %v", err)
	}
}

func TestHandleTurnOracleTimeout(t *testing.T) {
	t.Parallel()

	blocking := oracleFunc(func(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
		<-ctx.Done()
		return contractx.OracleReply{}, ctx.Err()
	})

	o := newTestOrchestrator(t, conversationx.NewMemoryStore(), blocking, &recordingTools{}, Config{OracleTimeout: 20 * time.Millisecond})
	_, err := o.HandleTurn(context.Background(), "s1", "hello")
	if !errors.Is(err, contractx.ErrTurnFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

type oracleFunc func(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error)

func (f oracleFunc) Complete(ctx context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
	return f(ctx, msgs)
}

func TestConcurrentTurnsOnOneSessionDoNotInterleave(t *testing.T) {
	t.Parallel()

	store := conversationx.NewMemoryStore()
	oracle := oracleFunc(func(_ context.Context, msgs []conversationx.Message) (contractx.OracleReply, error) {
		time.Sleep(time.Millisecond)
		last := msgs[len(msgs)-1]
		if last.Role == conversationx.RoleUser {
			return toolReply("call-" + last.Content), nil
		}
		return final("done " + last.ToolCallID), nil
	})
	o := newTestOrchestrator(t, store, oracle, &recordingTools{}, Config{})

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := o.HandleTurn(context.Background(), "shared", fmt.Sprintf("msg-%d", i)); err != nil {
				t.Errorf("HandleTurn() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	conv, err := store.Load(context.Background(), "shared")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := conv.Validate(); err != nil {
		t.Fatalf("conversation invalid: %v", err)
	}
	// preamble + 4 messages per turn
	if conv.Len() != 1+4*turns {
		t.Fatalf("stored %d messages, want %d", conv.Len(), 1+4*turns)
	}
	for i := 1; i < conv.Len(); i += 4 {
		user := conv.Messages[i]
		call := conv.Messages[i+1]
		if user.Role != conversationx.RoleUser || len(call.ToolCalls) != 1 || call.ToolCalls[0].ID != "call-"+user.Content {
			t.Fatalf("turn starting at %d interleaved: %#v / %#v", i, user, call)
		}
	}
}

func TestHandleTurnWithHospitalCatalog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := hospitaltest.NewRepository(t)
	doctor, err := repo.CreateDoctor(ctx, "Sarah Lee", "General Practice")
	if err != nil {
		t.Fatalf("CreateDoctor() error = %v", err)
	}
	catalog, err := toolx.NewCatalog(repo, adviceFunc(func(context.Context, string) (string, error) {
		return "Rest.", nil
	}))
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	oracle := &scriptedOracle{script: func(call int, msgs []conversationx.Message) (contractx.OracleReply, error) {
		switch call {
		case 1:
			return contractx.OracleReply{ToolCalls: []conversationx.ToolCall{
				{ID: "1", Name: "book_appointment", Arguments: fmt.Sprintf(`{"patient_id":"P-1","doctor_id":%d,"appointment_time":"Monday 9am"}`, doctor.ID)},
				{ID: "2", Name: "order_pizza", Arguments: "{}"},
			}}, nil
		default:
			return final(msgs[len(msgs)-2].Content), nil
		}
	}}
	o := newTestOrchestrator(t, conversationx.NewMemoryStore(), oracle, catalog, Config{})

	answer, err := o.HandleTurn(ctx, "s1", "Book me with Dr. Lee on Monday")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if answer.Text != "Appointment booked successfully!\nDoctor: Dr. Sarah Lee\nAppointment time: Monday 9am" {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if answer.ToolCalls != 2 || answer.FailedTools != 1 {
		t.Fatalf("ToolCalls = %d, FailedTools = %d, want 2 and 1", answer.ToolCalls, answer.FailedTools)
	}

	results := oracle.seen[1][len(oracle.seen[1])-2:]
	if results[1].ToolCallID != "2" || !strings.HasPrefix(results[1].Content, `Unknown operation "order_pizza"`) {
		t.Fatalf("unexpected unknown-tool result: %#v", results[1])
	}

	count, err := repo.CountAppointments(ctx)
	if err != nil {
		t.Fatalf("CountAppointments() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountAppointments() = %d, want 1", count)
	}
}

type adviceFunc func(ctx context.Context, description string) (string, error)

func (f adviceFunc) Advise(ctx context.Context, description string) (string, error) {
	return f(ctx, description)
}
