package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(set.Assistant, "hospital AI assistant") {
		t.Fatalf("unexpected assistant prompt: %q", set.Assistant)
	}
	if !strings.Contains(set.Triage, "do NOT give a final diagnosis") {
		t.Fatalf("unexpected triage prompt: %q", set.Triage)
	}
	if set.Assistant != strings.TrimSpace(set.Assistant) {
		t.Fatal("assistant prompt must be trimmed")
	}
}

func TestPromptSetValidateMissing(t *testing.T) {
	t.Parallel()

	err := PromptSet{Assistant: "x"}.Validate()
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("Validate() error = %v, want ErrPromptMissing", err)
	}
}
