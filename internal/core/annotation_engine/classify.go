package annotation_engine

import "strings"

// Role is the semantic role assigned to a table found in an AI review.
type Role int

const (
	// RoleInformational tables are displayed as-is.
	RoleInformational Role = iota
	// RoleActionableAmendments tables carry amendment rows the user can accept.
	RoleActionableAmendments
	// RoleActionableRedundancy tables carry redundancy notes the user can accept.
	RoleActionableRedundancy
)

func (r Role) String() string {
	switch r {
	case RoleActionableAmendments:
		return "actionable-amendments"
	case RoleActionableRedundancy:
		return "actionable-redundancy"
	default:
		return "informational"
	}
}

// MarshalText lets roles appear by name in JSON payloads.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Actionable reports whether tables of this role receive selection controls.
func (r Role) Actionable() bool {
	return r == RoleActionableAmendments || r == RoleActionableRedundancy
}

// Position tells Classify where the table sits among the tables already seen.
//
// Index:           zero-based position of the table in document order.
// AmendmentsFound: an earlier table was already classified as RoleActionableAmendments.
type Position struct {
	Index           int
	AmendmentsFound bool
}

var fallbackKeywords = []string{"amendment", "revision", "clause", "recommended"}

// Classify assigns a role to a table from its own text and the text that
// immediately precedes it (usually the heading the AI wrote above it).
// The checks run in order and the first match wins.
func Classify(tableText, precedingText string, pos Position) Role {
	own := strings.ToLower(tableText)
	before := strings.ToLower(precedingText)
	text := own + " " + before

	if strings.Contains(text, "compliance assessment") {
		return RoleInformational
	}

	if strings.Contains(text, "recommended legal amendments") ||
		strings.Contains(text, "clause revisions") ||
		(strings.Contains(text, "amendment") && strings.Contains(text, "revision") && strings.Contains(text, "clause")) {
		return RoleActionableAmendments
	}

	if strings.Contains(own, "redundancy check") || strings.Contains(before, "redundancy check") {
		return RoleActionableRedundancy
	}

	// Low-confidence fallback for paraphrased headings.
	if !pos.AmendmentsFound && pos.Index > 0 && !strings.Contains(text, "redundancy") {
		for _, kw := range fallbackKeywords {
			if strings.Contains(text, kw) {
				return RoleActionableAmendments
			}
		}
	}

	return RoleInformational
}
