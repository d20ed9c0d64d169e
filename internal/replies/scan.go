// Package replies turns the tool's line-oriented batch replies into one
// structured record per submitted item.
package replies

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/internal/metrics"
)

// CouldNotParse is the note attached to padded records.
const CouldNotParse = "Could not parse"

// line is one numbered record found in a reply.
type line struct {
	num  int
	body string // text after the "LABEL n:" prefix
}

// structured is the optional JSON body of a numbered line.
type structured struct {
	Verdict string `json:"verdict"`
	Note    string `json:"note"`
}

// parser holds the per-task rules for reading a reply.
type parser[T any] struct {
	task      string
	prefix    *regexp.Regexp
	// vocab lists the verdicts accepted from a structured body.
	vocab     map[string]bool
	// wholeBody matches keywords across the entire record instead of
	// only the text before the first " - ".
	wholeBody bool
	guess     func(upper string) string
	build     func(verdict, note string) T
	pad       T
	failed    func(sentinel string) T
}

func labelPrefix(label string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)^(?:%s\s*)?(\d+)\s*[.:]\s*`, label))
}

// parse reads reply into exactly n records.
func (p parser[T]) parse(reply string, n int) []T {
	out := make([]T, 0, n)
	if llmtool.IsSentinel(reply) {
		for range n {
			out = append(out, p.failed(strings.TrimSpace(reply)))
		}
		return out
	}

	lines := p.scan(reply)
	p.checkNumbering(lines, n)

	for _, l := range lines {
		if len(out) == n {
			break
		}
		verdict, note := p.decode(l.body)
		metrics.IncParsedRecord(p.task, verdict)
		out = append(out, p.build(verdict, note))
	}
	for len(out) < n {
		out = append(out, p.pad)
	}
	return out
}

func (p parser[T]) scan(reply string) []line {
	var lines []line
	for _, raw := range strings.Split(reply, "\n") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		m := p.prefix.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(s[m[2]:m[3]])
		lines = append(lines, line{num: num, body: strings.TrimSpace(s[m[1]:])})
	}
	return lines
}

// decode prefers a JSON body with a known verdict and falls back to
// keyword matching on the text before the first " - ", or on the whole
// body when wholeBody is set.
func (p parser[T]) decode(body string) (string, string) {
	if strings.HasPrefix(body, "{") {
		var s structured
		if err := json.Unmarshal([]byte(body), &s); err == nil {
			v := strings.ToUpper(strings.TrimSpace(s.Verdict))
			if p.vocab[v] {
				return v, normalizeNote(s.Note)
			}
		}
	}
	head := body
	if !p.wholeBody {
		head, _, _ = strings.Cut(body, " - ")
	}
	return p.guess(strings.ToUpper(head)), noteAfterDash(body)
}

// checkNumbering logs replies whose item numbers disagree with their
// positions. Position is what maps a record to its item.
func (p parser[T]) checkNumbering(lines []line, n int) {
	for i, l := range lines {
		if i >= n {
			return
		}
		if l.num != i+1 {
			zap.L().Warn("replies: item numbers out of order, mapping by position",
				zap.String("task", p.task),
				zap.Int("position", i+1),
				zap.Int("number", l.num),
			)
			metrics.IncMisnumberedReply(p.task)
			return
		}
	}
}

func noteAfterDash(body string) string {
	_, after, ok := strings.Cut(body, " - ")
	if !ok {
		return ""
	}
	return normalizeNote(after)
}

func normalizeNote(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "OK", "NONE":
		return ""
	}
	return s
}
