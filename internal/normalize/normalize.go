// Package normalize canonicalizes legal terminology in free text so that the
// same statute or section written in different styles embeds alike.
package normalize

import "regexp"

type rule struct {
	pattern *regexp.Regexp
	replace string
}

var rules = []rule{
	{regexp.MustCompile(`\b([A-Z])\.\s*([A-Z])\.\s*([A-Z])`), "${1}${2}${3}"},
	{regexp.MustCompile(`\b([A-Z])\.\s*([A-Z])`), "${1}${2}"},
	{regexp.MustCompile(`(?i)\bSection\s+(\d+[A-Z]?)\b`), "${1}"},
	{regexp.MustCompile(`(?i)\bIndian Penal Code\b`), "IPC"},
	{regexp.MustCompile(`(?i)\bCode of Criminal Procedure\b`), "CrPC"},
	{regexp.MustCompile(`(?i)\bIncome Tax Act\b`), "IT Act"},
}

// maxPasses bounds the fixed-point loop. Every rule shortens the text it
// rewrites, so real input settles within two or three passes.
const maxPasses = 16

// Text applies the normalization rules until the text stops changing.
func Text(text string) string {
	if text == "" {
		return ""
	}
	for i := 0; i < maxPasses; i++ {
		next := apply(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func apply(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}
