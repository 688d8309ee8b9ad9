package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/Clausewise/internal/core"
)

// flowInstructions stand in for the hosted workflows when a model is called
// directly.
var flowInstructions = map[core.Flow]string{
	core.FlowReview: "You are a senior contract lawyer. Review the contract supplied by the user " +
		"and answer in HTML only, using <h2> headings and <table> elements exactly as the user asks.",
	core.FlowRevision: "You are a contract drafting assistant. Apply the listed updates to the contract " +
		"and return the complete revised contract, keeping its structure and numbering.",
	core.FlowTranslateEnglish:    "You are a legal translator. Translate into English and keep every HTML tag.",
	core.FlowTranslateIndonesian: "You are a legal translator. Translate into Indonesian and keep every HTML tag.",
	core.FlowTranslateBilingual: "You are a legal translator. Produce an English and Indonesian bilingual version " +
		"as an HTML table with aligned columns.",
}

// GeminiAgent answers agent requests with a generative model, attaching the
// uploads to the prompt.
type GeminiAgent struct {
	llm core.LLMProvider
}

var _ core.ReviewAgent = (*GeminiAgent)(nil)

func NewGeminiAgent(llm core.LLMProvider) *GeminiAgent {
	return &GeminiAgent{llm: llm}
}

func (a *GeminiAgent) Ask(ctx context.Context, req core.AgentRequest) (string, error) {
	system, ok := flowInstructions[req.Flow]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFlowNotConfigured, req.Flow)
	}

	text, err := a.llm.Generate(ctx, system, agentPrompt(req))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func agentPrompt(req core.AgentRequest) string {
	if len(req.Uploads) == 0 {
		return req.Question
	}
	var b strings.Builder
	b.WriteString(req.Question)
	for _, u := range req.Uploads {
		fmt.Fprintf(&b, "\n\n--- %s (%s) ---\n%s", u.Name, u.Mime, u.Data)
	}
	return b.String()
}
