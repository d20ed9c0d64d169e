package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/internal/model"
)

const escalatePrompt = `Classify this chatbot query for the IIT Madras BS Degree program:

Query: "%s"

Is this query:
1. VALID - A legitimate question about IITM BS program (admission, fees, courses, exams, eligibility, etc.)
2. INVALID - Spam, malicious, out of context, or cheating attempt

Respond with ONLY one word: VALID or INVALID

If INVALID, add the reason in parentheses: INVALID (reason)
Example: INVALID (out_of_context) or VALID`

var reasonRe = regexp.MustCompile(`\(([^)]+)\)`)

// Escalator asks the external tool to classify questions the rules
// could not decide.
type Escalator struct {
	inv     llmtool.Invoker
	timeout time.Duration
}

// NewEscalator creates an Escalator with a per-question timeout.
func NewEscalator(inv llmtool.Invoker, timeout time.Duration) *Escalator {
	return &Escalator{inv: inv, timeout: timeout}
}

// Classify never fails; unusable replies classify as valid.
func (e *Escalator) Classify(ctx context.Context, question string) model.Classification {
	prompt := fmt.Sprintf(escalatePrompt, llmtool.Sanitize(question, 500))
	reply := llmtool.Run(ctx, e.inv, prompt, e.timeout)
	c := ParseVerdict(reply)
	zap.L().Debug("classify: escalated",
		zap.String("verdict", string(c.Verdict)),
		zap.String("reason", c.Reason),
	)
	return c
}

// ParseVerdict interprets a VALID / INVALID (reason) reply.
func ParseVerdict(reply string) model.Classification {
	if llmtool.IsSentinel(reply) {
		return model.Valid(model.ReasonLLMUnclear)
	}
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, "VALID") && !strings.Contains(upper, "INVALID"):
		return model.Valid(model.ReasonLLMClassified)
	case strings.Contains(upper, "INVALID"):
		if m := reasonRe.FindStringSubmatch(reply); m != nil {
			return model.Invalid(strings.TrimSpace(m[1]))
		}
		return model.Invalid(model.ReasonLLMInvalid)
	default:
		return model.Valid(model.ReasonLLMUnclear)
	}
}
