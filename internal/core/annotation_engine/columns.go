package annotation_engine

import "strings"

// Field is one of the logical columns of an amendments table.
type Field int

const (
	FieldReference Field = iota
	FieldRecommendedAmendment
	FieldOriginalClause
	FieldVerificationNote
	FieldRevisedClause
	fieldCount
)

type columnRule struct {
	substrings []string
	fallback   int
}

// Header substrings are tried in order; when none matches, the positional
// fallback is used.
var columnRules = [fieldCount]columnRule{
	FieldReference:            {substrings: []string{"contractual reference"}, fallback: 0},
	FieldRecommendedAmendment: {substrings: []string{"recommended legal amendment"}, fallback: 1},
	FieldOriginalClause:       {substrings: []string{"original clause"}, fallback: 2},
	FieldVerificationNote:     {substrings: []string{"input verification of amendments", "verification"}, fallback: 3},
	FieldRevisedClause:        {substrings: []string{"revised clause", "formal legal language", "recommended amendment"}, fallback: 4},
}

// Columns maps every Field to a cell index.
type Columns [fieldCount]int

// ResolveColumns locates each field among the header texts.
func ResolveColumns(headers []string) Columns {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(normalizeSpace(h))
	}

	var cols Columns
	for f := Field(0); f < fieldCount; f++ {
		cols[f] = findColumn(lower, columnRules[f])
	}
	return cols
}

func findColumn(headers []string, rule columnRule) int {
	for _, sub := range rule.substrings {
		for i, h := range headers {
			if strings.Contains(h, sub) {
				return i
			}
		}
	}
	return rule.fallback
}

// MaxIndex is the highest cell index any field resolves to.
func (c Columns) MaxIndex() int {
	max := 0
	for _, idx := range c {
		if idx > max {
			max = idx
		}
	}
	return max
}
