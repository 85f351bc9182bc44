package model

import (
	"encoding/json"
	"strings"
)

const UnknownValue = "Unknown"

// Case is one judgment record. Any field may be missing or arrive in a
// different shape than documented, so all of them are FieldValue.
type Case struct {
	CaseID            FieldValue `json:"case_id,omitzero"`
	Court             FieldValue `json:"court,omitzero"`
	Date              FieldValue `json:"date,omitzero"`
	Petitioners       FieldValue `json:"petitioners,omitzero"`
	Respondents       FieldValue `json:"respondents,omitzero"`
	Judges            FieldValue `json:"judges,omitzero"`
	ActsReferred      FieldValue `json:"acts_referred,omitzero"`
	Sections          FieldValue `json:"sections,omitzero"`
	PredictedOutcome  FieldValue `json:"predicted_outcome,omitzero"`
	Summary           FieldValue `json:"summary,omitzero"`
	Facts             FieldValue `json:"facts,omitzero"`
	Arguments         FieldValue `json:"arguments,omitzero"`
	JudgmentReasoning FieldValue `json:"judgment_reasoning,omitzero"`
	LegalIssues       FieldValue `json:"legal_issues,omitzero"`
	PrimaryLegalIssue FieldValue `json:"primary_legal_issue,omitzero"`
	KeyLegalPoints    FieldValue `json:"key_legal_points,omitzero"`
	PrecedentsCited   FieldValue `json:"precedents_cited,omitzero"`
	Citations         FieldValue `json:"citations,omitzero"`
	CaseType          FieldValue `json:"case_type,omitzero"`

	// keys written by older extraction runs
	LegalIssuesAlt       FieldValue `json:"legalissues,omitzero"`
	PrimaryLegalIssueAlt FieldValue `json:"primarylegalissue,omitzero"`
	KeyLegalPointsAlt    FieldValue `json:"keylegalpoints,omitzero"`
	JudgmentReasoningAlt FieldValue `json:"judgmentreasoning,omitzero"`

	raw json.RawMessage
}

func (c *Case) ID() string {
	if c == nil {
		return ""
	}
	return c.CaseID.Text()
}

func (c *Case) LegalIssuesValue() FieldValue {
	return firstPresent(c.LegalIssues, c.LegalIssuesAlt)
}

func (c *Case) PrimaryLegalIssueValue() FieldValue {
	return firstPresent(c.PrimaryLegalIssue, c.PrimaryLegalIssueAlt)
}

func (c *Case) KeyLegalPointsValue() FieldValue {
	return firstPresent(c.KeyLegalPoints, c.KeyLegalPointsAlt)
}

func (c *Case) JudgmentReasoningValue() FieldValue {
	return firstPresent(c.JudgmentReasoning, c.JudgmentReasoningAlt)
}

func (c *Case) UnmarshalJSON(data []byte) error {
	type alias Case
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*c = Case(tmp)
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the record exactly as it was read so keys this type
// does not model are preserved.
func (c Case) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type alias Case
	return json.Marshal(alias(c))
}

// IsPresent reports whether a metadata value carries information.
func IsPresent(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != UnknownValue
}

func firstPresent(primary, fallback FieldValue) FieldValue {
	if primary.Text() != "" {
		return primary
	}
	return fallback
}
