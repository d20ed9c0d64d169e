package model

// LogRow is one chatbot transcript record read from a log file.
type LogRow struct {
	// Line is the 1-based data row number in the source file.
	Line      int      `json:"line"`
	Timestamp string   `json:"timestamp"`
	Question  string   `json:"question"`
	Response  string   `json:"response"`
	Raw       []string `json:"-"` // original cells, aligned with the file header
}

// Verdict is the valid/invalid outcome of classifying a question.
type Verdict string

const (
	VerdictValid   Verdict = "valid"
	VerdictInvalid Verdict = "invalid"
)

// Reason tags reported by the classifiers. The external tool may also
// supply its own free-text reason for an invalid question.
const (
	ReasonOutOfContext  = "out_of_context"
	ReasonGreeting      = "greeting"
	ReasonMalicious     = "malicious"
	ReasonCheating      = "cheating"
	ReasonMetaQuestion  = "meta_question"
	ReasonTooShort      = "too_short"
	ReasonIITMRelated   = "iitm_related"
	ReasonDefaultValid  = "default_valid"
	ReasonLLMClassified = "llm_classified"
	ReasonLLMInvalid    = "llm_classified_invalid"
	ReasonLLMUnclear    = "llm_unclear"
)

// Classification is the result of classifying one question.
type Classification struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// Valid reports whether the question was classified as valid.
func (c Classification) Valid() bool { return c.Verdict == VerdictValid }

// Valid returns a valid classification with the given reason.
func Valid(reason string) Classification {
	return Classification{Verdict: VerdictValid, Reason: reason}
}

// Invalid returns an invalid classification with the given reason.
func Invalid(reason string) Classification {
	return Classification{Verdict: VerdictInvalid, Reason: reason}
}

// LLMClassified reports whether the reason came from the external tool.
func (c Classification) LLMClassified() bool {
	switch c.Reason {
	case ReasonOutOfContext, ReasonGreeting, ReasonMalicious, ReasonCheating,
		ReasonMetaQuestion, ReasonTooShort, ReasonIITMRelated, ReasonDefaultValid:
		return false
	}
	return true
}
