package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
)

var (
	//go:embed template/assistant.txt
	assistantRaw string

	//go:embed template/triage.txt
	triageRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Assistant string
	Triage    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Assistant: strings.TrimSpace(assistantRaw),
		Triage:    strings.TrimSpace(triageRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Assistant == "" {
		return fmt.Errorf("%w: assistant", contractx.ErrPromptMissing)
	}
	if p.Triage == "" {
		return fmt.Errorf("%w: triage", contractx.ErrPromptMissing)
	}
	return nil
}
