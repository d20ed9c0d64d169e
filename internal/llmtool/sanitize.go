package llmtool

import (
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

var injectionPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`<\|.*?\|>`), "[REMOVED]"},
	{regexp.MustCompile(`(?i)\bsystem\s*:`), "[system]"},
	{regexp.MustCompile(`(?i)\buser\s*:`), "[user]"},
	{regexp.MustCompile(`(?i)\bassistant\s*:`), "[assistant]"},
	{regexp.MustCompile(`(?i)\bhuman\s*:`), "[human]"},
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+instructions`), "[REMOVED]"},
	{regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|above|prior)\s+instructions`), "[REMOVED]"},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above|prior)\s+instructions`), "[REMOVED]"},
}

// Sanitize truncates untrusted log text to maxRunes and strips control
// characters and prompt-injection markers before it is embedded in a
// prompt. Tabs and newlines survive.
func Sanitize(text string, maxRunes int) string {
	if text == "" {
		return ""
	}
	if maxRunes > 0 {
		if r := []rune(text); len(r) > maxRunes {
			text = string(r[:maxRunes])
		}
	}
	text = strings.ToValidUTF8(text, "")
	text = controlChars.ReplaceAllString(text, "")
	for _, p := range injectionPatterns {
		text = p.re.ReplaceAllString(text, p.repl)
	}
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
