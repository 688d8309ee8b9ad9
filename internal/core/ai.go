package core

import "context"

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Flow names one use-case of the review agent. Each flow has its own
// endpoint (or system prompt, for model-backed agents).
type Flow string

const (
	FlowReview              Flow = "review"
	FlowRevision            Flow = "revision"
	FlowTranslateEnglish    Flow = "translate-english"
	FlowTranslateIndonesian Flow = "translate-indonesian"
	FlowTranslateBilingual  Flow = "translate-bilingual"
)

// Upload is a document attached to an agent request.
//
// Type: upload kind understood by the workflow service, "file:full" for whole documents.
// Data: the document's extracted text.
type Upload struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	Mime string `json:"mime"`
}

// AgentRequest is one question to the review agent.
type AgentRequest struct {
	Flow     Flow
	Question string
	ChatID   string
	Uploads  []Upload
}

// ReviewAgent answers review, revision and translation questions. The
// answer is text that may carry HTML.
type ReviewAgent interface {
	Ask(ctx context.Context, req AgentRequest) (string, error)
}
