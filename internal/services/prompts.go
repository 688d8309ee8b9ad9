package services

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// ReviewRequest holds what the user told us about a contract under review.
type ReviewRequest struct {
	ContractName string
	ContractText string
	Party        string
	RiskAppetite string
	Jurisdiction string
	Language     string
	References   []NamedText
	Related      []models.ReferenceChunk
}

// NamedText is an extracted document.
type NamedText struct {
	Name string
	Text string
}

type PromptBuilder struct{}

// Review asks for the three review tables the annotation engine recognises.
// The contract itself travels as an upload, not in the prompt.
func (PromptBuilder) Review(r ReviewRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Please review the attached contract %q.\n", r.ContractName)
	if r.Party != "" {
		fmt.Fprintf(&b, "We act for: %s.\n", r.Party)
	}
	if r.RiskAppetite != "" {
		fmt.Fprintf(&b, "Risk appetite: %s.\n", r.RiskAppetite)
	}
	if r.Jurisdiction != "" {
		fmt.Fprintf(&b, "Governing law / jurisdiction: %s.\n", r.Jurisdiction)
	}
	lang := r.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}
	fmt.Fprintf(&b, "Write the review in %s.\n", lang)

	b.WriteString(`
Answer in HTML only. Produce these sections, each an <h2> heading followed by one <table> with a header row:

1. <h2>Compliance Assessment</h2>: how the contract complies with the applicable law and the reference documents.
2. <h2>Recommended Legal Amendments and Clause Revisions</h2> with exactly these columns:
   Contractual Reference | Recommended Legal Amendment | Original Clause | Input Verification of Amendments | Revised Clause
   Leave "Input Verification of Amendments" empty. "Revised Clause" holds the amended clause in formal legal language.
3. <h2>Redundancy Check</h2>: clauses that repeat or contradict each other.
`)

	for _, ref := range r.References {
		fmt.Fprintf(&b, "\nReference document %q:\n%s\n", ref.Name, ref.Text)
	}
	if len(r.Related) > 0 {
		b.WriteString("\nRelevant excerpts from the reference library:\n")
		for i, c := range r.Related {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Text)
		}
	}
	return b.String()
}

// UpdatesText formats accepted amendments the way the revision prompt and
// the change view show them.
func (PromptBuilder) UpdatesText(updates []models.ContractUpdate) string {
	parts := make([]string, len(updates))
	for i, u := range updates {
		parts[i] = fmt.Sprintf("Update %d:\n- Contractual Reference: %s\n- Original Clause: %s\n- Recommended Legal Amendment: %s\n",
			i+1, orNA(u.ContractualReference), orNA(u.OriginalClause), orNA(u.RecommendedLegalAmendment))
	}
	return strings.Join(parts, "\n")
}

// Revision asks for the full contract with the updates applied.
func (p PromptBuilder) Revision(originalText string, updates []models.ContractUpdate) string {
	return fmt.Sprintf(`
Here is the original contract:

%s

Below are the contract updates to apply:

%s

Please generate the full revised contract after applying these updates. Keep the structure, legal formatting, and numbering. Make sure to incorporate all the recommended legal amendments into the appropriate sections of the contract.
`, originalText, p.UpdatesText(updates))
}

// Translation returns the flow and prompt for translating text.
func (PromptBuilder) Translation(language, text string) (core.Flow, string, error) {
	switch language {
	case models.LanguageEnglish:
		return core.FlowTranslateEnglish, "Translate this text into English but keep the HTML tags : " + text, nil
	case models.LanguageIndonesian:
		return core.FlowTranslateIndonesian, "Translate this text into Indonesian but keep the HTML tags : " + text, nil
	case models.LanguageBilingual:
		return core.FlowTranslateBilingual, "Translate the following text into Indonesian and English, and format the result into a 2-column layout: " +
			text +
			". The left column should contain the Indonesian translation. The right column should contain the English version. " +
			"Each row must align semantically, meaning the same sentence or clause in both languages must appear side by side.", nil
	}
	return "", "", validationError("language must be one of english, indonesian, bilingual", map[string]any{"language": language})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
