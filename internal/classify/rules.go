package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/RishavT/iitmdocs/internal/model"
)

// Rules is the declarative classification table.
type Rules struct {
	MinLength      int      `yaml:"min_length"`
	Groups         []Group  `yaml:"groups"`
	ContextWords   []string `yaml:"context_words"`
	DomainKeywords []string `yaml:"domain_keywords"`
	CannotAnswer   []string `yaml:"cannot_answer"`
}

// Group is an ordered list of patterns sharing one invalid reason. With
// ContextOverride set, the group is skipped for questions that contain
// any of the context words.
type Group struct {
	Reason          string    `yaml:"reason"`
	ContextOverride bool      `yaml:"context_override"`
	Patterns        []Pattern `yaml:"patterns"`
}

// Pattern is one case-insensitive regular expression. A match is ignored
// when any UnlessFollowedBy word appears later on the same line.
type Pattern struct {
	Expr             string   `yaml:"expr"`
	UnlessFollowedBy []string `yaml:"unless_followed_by,omitempty"`
}

// DefaultRules returns the built-in table for the IITM BS admissions bot.
func DefaultRules() Rules {
	return Rules{
		MinLength: 3,
		Groups: []Group{
			{
				Reason:          model.ReasonOutOfContext,
				ContextOverride: true,
				Patterns: []Pattern{
					{Expr: `\b(weather|pizza|movie|hotel|restaurant|recipe|cook|music|song|game|sport)\b`},
					{Expr: `\b(whatsapp|instagram|facebook|twitter|youtube|netflix|amazon)\b`},
					{Expr: `\b(girlfriend|boyfriend|dating|marriage|love)\b`},
					{Expr: `\b(weight loss|diet|gym|workout|exercise)\b`},
					{Expr: `\b(capital of|president of|prime minister)\b`},
					{Expr: `\b(samosa|biryani|chai|coffee)\b`, UnlessFollowedBy: []string{"fee", "exam", "course"}},
				},
			},
			{
				Reason: model.ReasonGreeting,
				Patterns: []Pattern{
					{Expr: `^(hi|hello|hey|good morning|good evening|good afternoon|howdy)[\s!?.]*$`},
					{Expr: `^how are you`},
					{Expr: `^what'?s up`},
				},
			},
			{
				Reason: model.ReasonMalicious,
				Patterns: []Pattern{
					{Expr: `ignore (previous|all|above) instructions`},
					{Expr: `you are now`},
					{Expr: `pretend to be`},
					{Expr: `act as if`},
					{Expr: `system prompt`},
					{Expr: `jailbreak`},
					{Expr: `bypass`},
				},
			},
			{
				Reason: model.ReasonCheating,
				Patterns: []Pattern{
					{Expr: `give me (the )?answer`},
					{Expr: `solve this (question|problem|assignment)`},
					{Expr: `write (my |the )?(assignment|homework|essay|code)`},
					{Expr: `help me cheat`},
				},
			},
			{
				Reason: model.ReasonMetaQuestion,
				Patterns: []Pattern{
					{Expr: `what (model|ai|llm|chatbot) (are you|am i|is this)`},
					{Expr: `who (made|created|built) you`},
					{Expr: `are you (gpt|claude|gemini|chatgpt)`},
				},
			},
		},
		ContextWords: []string{"iitm", "iit", "bs", "degree", "course", "exam", "fee", "admission", "qualifier"},
		DomainKeywords: []string{
			"iitm", "iit madras", "qualifier", "foundation", "diploma", "bs degree",
			"data science", "electronic systems", "admission", "eligibility",
		},
		CannotAnswer: []string{
			`i'm sorry, i don't have the information`,
			`cannot answer`,
			`don't have enough information`,
			`unable to provide`,
			`outside.*scope`,
		},
	}
}

// LoadRules reads a YAML rules file. Sections present in the file
// replace the corresponding defaults; absent sections keep them.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Rules{}, eris.Wrap(err, "classify: parse rules")
	}

	if file.MinLength > 0 {
		rules.MinLength = file.MinLength
	}
	if len(file.Groups) > 0 {
		rules.Groups = file.Groups
	}
	if len(file.ContextWords) > 0 {
		rules.ContextWords = file.ContextWords
	}
	if len(file.DomainKeywords) > 0 {
		rules.DomainKeywords = file.DomainKeywords
	}
	if len(file.CannotAnswer) > 0 {
		rules.CannotAnswer = file.CannotAnswer
	}
	return rules, nil
}
