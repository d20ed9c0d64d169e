// Package classify decides whether a logged question is a legitimate
// query for the admissions chatbot.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/model"
)

type compiledPattern struct {
	re     *regexp.Regexp
	unless []string
}

type compiledGroup struct {
	reason          string
	contextOverride bool
	patterns        []compiledPattern
}

// Classifier applies a compiled Rules table. It is safe for concurrent use.
type Classifier struct {
	minLength    int
	groups       []compiledGroup
	contextWords []string
	keywords     []string
	cannotAnswer []*regexp.Regexp
}

// New compiles rules into a Classifier.
func New(rules Rules) (*Classifier, error) {
	c := &Classifier{
		minLength:    rules.MinLength,
		contextWords: lowerAll(rules.ContextWords),
		keywords:     lowerAll(rules.DomainKeywords),
	}

	for _, g := range rules.Groups {
		if g.Reason == "" {
			return nil, eris.New("classify: group without reason")
		}
		cg := compiledGroup{reason: g.Reason, contextOverride: g.ContextOverride}
		for _, p := range g.Patterns {
			re, err := regexp.Compile("(?i)" + p.Expr)
			if err != nil {
				return nil, eris.Wrapf(err, "classify: compile %s pattern %q", g.Reason, p.Expr)
			}
			cg.patterns = append(cg.patterns, compiledPattern{re: re, unless: lowerAll(p.UnlessFollowedBy)})
		}
		c.groups = append(c.groups, cg)
	}

	for _, expr := range rules.CannotAnswer {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: compile cannot-answer pattern %q", expr)
		}
		c.cannotAnswer = append(c.cannotAnswer, re)
	}

	return c, nil
}

// Default returns a Classifier for DefaultRules.
func Default() *Classifier {
	c, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the rule-based verdict for question. ok is false when
// no rule decides, leaving the choice to the caller.
func (c *Classifier) Classify(question string) (model.Classification, bool) {
	q := strings.ToLower(strings.TrimSpace(question))

	if utf8.RuneCountInString(q) < c.minLength {
		return model.Invalid(model.ReasonTooShort), true
	}

	for _, g := range c.groups {
		if g.contextOverride && containsAny(q, c.contextWords) {
			continue
		}
		for _, p := range g.patterns {
			if p.matches(q) {
				return model.Invalid(g.reason), true
			}
		}
	}

	if containsAny(q, c.keywords) {
		return model.Valid(model.ReasonIITMRelated), true
	}

	return model.Classification{}, false
}

// CannotAnswer reports whether a chatbot response declines to answer.
func (c *Classifier) CannotAnswer(response string) bool {
	for _, re := range c.cannotAnswer {
		if re.MatchString(response) {
			return true
		}
	}
	return false
}

// matches reports whether any occurrence of the pattern is not followed,
// on the same line, by one of the excluded words.
func (p compiledPattern) matches(q string) bool {
	if len(p.unless) == 0 {
		return p.re.MatchString(q)
	}
	for _, loc := range p.re.FindAllStringIndex(q, -1) {
		rest := q[loc[1]:]
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[:i]
		}
		if !containsAny(rest, p.unless) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
