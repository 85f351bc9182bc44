package corpus

import (
	"fmt"
	"regexp"

	"github.com/xxxsen/legalvault/internal/model"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var validOutcomes = map[string]struct{}{
	"Allowed":          {},
	"Dismissed":        {},
	"Partly Allowed":   {},
	"Disposed":         {},
	model.UnknownValue: {},
}

// Validate checks the minimal fields an imported case must carry.
func Validate(c *model.Case) error {
	if c == nil {
		return fmt.Errorf("%w: case is nil", appErr.ErrInvalid)
	}
	required := []struct {
		name  string
		value model.FieldValue
	}{
		{"case_id", c.CaseID},
		{"court", c.Court},
		{"summary", c.Summary},
	}
	for _, f := range required {
		if f.value.Text() == "" {
			return fmt.Errorf("%w: %s is required", appErr.ErrInvalid, f.name)
		}
	}
	if date := c.Date.Text(); date != "" && date != model.UnknownValue && !datePattern.MatchString(date) {
		return fmt.Errorf("%w: bad date %q", appErr.ErrInvalid, date)
	}
	if outcome := c.PredictedOutcome.Text(); outcome != "" {
		if _, ok := validOutcomes[outcome]; !ok {
			return fmt.Errorf("%w: bad outcome %q", appErr.ErrInvalid, outcome)
		}
	}
	return nil
}
