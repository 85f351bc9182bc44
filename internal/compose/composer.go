// Package compose builds the weighted composite document that represents a
// case for embedding.
package compose

import (
	"fmt"
	"strings"

	"github.com/xxxsen/legalvault/internal/model"
	"github.com/xxxsen/legalvault/internal/normalize"
)

// MaxLength caps the composite document in characters.
const MaxLength = 10000

type field struct {
	name      string
	value     func(c *model.Case) model.FieldValue
	maxChars  int
	weight    int
	sentinels []string
}

// fields is ordered by priority; weight is how many copies of the chunk are
// emitted.
var fields = []field{
	{name: "legal_issues", value: (*model.Case).LegalIssuesValue, maxChars: 800, weight: 4},
	{name: "primary_legal_issue", value: (*model.Case).PrimaryLegalIssueValue, maxChars: 400, weight: 4, sentinels: []string{"Unknown legal issue"}},
	{name: "summary", value: func(c *model.Case) model.FieldValue { return c.Summary }, maxChars: 1000, weight: 3},
	{name: "key_legal_points", value: (*model.Case).KeyLegalPointsValue, maxChars: 800, weight: 3},
	{name: "facts", value: func(c *model.Case) model.FieldValue { return c.Facts }, maxChars: 600, weight: 2},
	{name: "judgment_reasoning", value: (*model.Case).JudgmentReasoningValue, maxChars: 600, weight: 2},
	{name: "acts_referred", value: func(c *model.Case) model.FieldValue { return c.ActsReferred }, maxChars: 400, weight: 2},
	{name: "arguments", value: func(c *model.Case) model.FieldValue { return c.Arguments }, maxChars: 500, weight: 1},
	{name: "precedents_cited", value: func(c *model.Case) model.FieldValue { return c.PrecedentsCited }, maxChars: 400, weight: 1},
}

type tag struct {
	label string
	value func(c *model.Case) model.FieldValue
}

var tags = []tag{
	{label: "Type", value: func(c *model.Case) model.FieldValue { return c.CaseType }},
	{label: "Outcome", value: func(c *model.Case) model.FieldValue { return c.PredictedOutcome }},
	{label: "Court", value: func(c *model.Case) model.FieldValue { return c.Court }},
}

// Text returns the composite document for c. The result depends only on c.
func Text(c *model.Case) string {
	if c == nil {
		return placeholder("")
	}
	parts := make([]string, 0, 32)
	for _, f := range fields {
		chunk, ok := f.chunk(c)
		if !ok {
			continue
		}
		for i := 0; i < f.weight; i++ {
			parts = append(parts, chunk)
		}
	}
	for _, t := range tags {
		v := t.value(c).Text()
		if !model.IsPresent(v) {
			continue
		}
		parts = append(parts, t.label+": "+v)
	}
	combined := truncate(strings.Join(parts, " "), MaxLength)
	if strings.TrimSpace(combined) == "" {
		return placeholder(c.ID())
	}
	return combined
}

// Texts composes every case in order.
func Texts(cases []*model.Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = Text(c)
	}
	return out
}

func (f field) chunk(c *model.Case) (string, bool) {
	flat := f.value(c).Flatten()
	trimmed := strings.TrimSpace(flat)
	if !model.IsPresent(trimmed) {
		return "", false
	}
	for _, s := range f.sentinels {
		if trimmed == s {
			return "", false
		}
	}
	normalized := normalize.Text(truncate(flat, f.maxChars))
	if strings.TrimSpace(normalized) == "" {
		return "", false
	}
	return normalized, true
}

func placeholder(caseID string) string {
	if caseID == "" {
		caseID = "unknown"
	}
	return fmt.Sprintf("Case %s - No extractable text", caseID)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
