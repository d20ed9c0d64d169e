package analyzer

import (
	"fmt"
	"strings"

	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/internal/model"
	"github.com/RishavT/iitmdocs/internal/replies"
)

const (
	maxResponseRunes = 400
	maxQuestionRunes = 500
)

// replyFormat renders the per-line answer format shown to the tool. In
// structured mode each line carries a JSON object instead of free text.
func replyFormat(label string, n int, verdicts, note string, structured bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Respond with EXACTLY %d lines, one per %s, in this format:\n", n, strings.ToLower(label))
	for i := 1; i <= min(n, 2); i++ {
		if structured {
			fmt.Fprintf(&b, "%s %d: {\"verdict\": \"%s\", \"note\": \"%s\"}\n", label, i, strings.ReplaceAll(verdicts, "/", "|"), note)
		} else {
			fmt.Fprintf(&b, "%s %d: [%s] - [%s]\n", label, i, verdicts, note)
		}
	}
	fmt.Fprintf(&b, "...and so on for all %d %ss.\n", n, strings.ToLower(label))
	return b.String()
}

// FactCheckTask verifies answered responses against the knowledge source.
type FactCheckTask struct {
	Structured bool
}

func (FactCheckTask) Name() string { return "fact_check" }

func (t FactCheckTask) Prompt(items []model.BatchItem) string {
	blocks := make([]string, len(items))
	for i, it := range items {
		blocks[i] = fmt.Sprintf("[RESPONSE %d]\n%s\n[/RESPONSE %d]", i+1, llmtool.Sanitize(it.Response, maxResponseRunes), i+1)
	}

	return fmt.Sprintf(`You are an expert fact checker for the IIT Madras BS Degree program.

IMPORTANT: First, read the documents in the src/ folder to understand the facts about the program.

Then, fact-check EACH of the following %d chatbot responses against those documents.

=== RESPONSES TO VERIFY ===
%s
=== END RESPONSES ===

For EACH response, determine if it is factually accurate based on the src/ documents.

%s
Be concise. Only flag clear factual errors.
`, len(items), strings.Join(blocks, "\n\n"),
		replyFormat("RESPONSE", len(items), "CORRECT/INCORRECT/PARTIALLY_CORRECT", `brief issue or "OK"`, t.Structured))
}

func (FactCheckTask) Parse(reply string, n int) []model.FactCheckResult {
	return replies.FactCheck(reply, n)
}

func (FactCheckTask) Failed(sentinel string) model.FactCheckResult {
	return replies.FactCheckFailed(sentinel)
}

// AnswerSearchTask looks for answers to questions the chatbot could not answer.
type AnswerSearchTask struct {
	Structured bool
}

func (AnswerSearchTask) Name() string { return "answer_search" }

func (t AnswerSearchTask) Prompt(items []model.BatchItem) string {
	blocks := make([]string, len(items))
	for i, it := range items {
		blocks[i] = fmt.Sprintf("[QUESTION %d]\n%s\n[/QUESTION %d]", i+1, llmtool.Sanitize(it.Question, maxQuestionRunes), i+1)
	}

	return fmt.Sprintf(`You are an expert on the IIT Madras BS Degree program.

IMPORTANT: First, read the documents in the src/ folder to understand the facts about the program.

The admissions chatbot could not answer the following %d questions. For EACH question, search those documents for an answer.

=== QUESTIONS ===
%s
=== END QUESTIONS ===

If the documents answer the question, reply FOUND followed by the answer in one or two sentences. Otherwise reply NOT_FOUND.

%s
Only answer from the documents. Do not guess.
`, len(items), strings.Join(blocks, "\n\n"),
		replyFormat("QUESTION", len(items), "FOUND/NOT_FOUND", "answer from the documents, empty if not found", t.Structured))
}

func (AnswerSearchTask) Parse(reply string, n int) []model.AnswerSearchResult {
	return replies.AnswerSearch(reply, n)
}

func (AnswerSearchTask) Failed(sentinel string) model.AnswerSearchResult {
	return replies.AnswerSearchFailed(sentinel)
}

// ComparisonTask judges the logged response against the live bot's response.
type ComparisonTask struct {
	Structured bool
}

func (ComparisonTask) Name() string { return "compare" }

func (t ComparisonTask) Prompt(items []model.BatchItem) string {
	blocks := make([]string, len(items))
	for i, it := range items {
		blocks[i] = fmt.Sprintf("[PAIR %d]\nQuestion: %s\n[OLD]\n%s\n[/OLD]\n[NEW]\n%s\n[/NEW]\n[/PAIR %d]",
			i+1,
			llmtool.Sanitize(it.Question, maxQuestionRunes),
			llmtool.Sanitize(it.Response, maxResponseRunes),
			llmtool.Sanitize(it.NewResponse, maxResponseRunes),
			i+1,
		)
	}

	return fmt.Sprintf(`You are an expert reviewer for the IIT Madras BS Degree program chatbot.

IMPORTANT: First, read the documents in the src/ folder to understand the facts about the program.

Each of the following %d pairs holds a question with an OLD chatbot response and a NEW chatbot response. Using those documents, judge which response answers the question better.

=== PAIRS TO COMPARE ===
%s
=== END PAIRS ===

Use NEW_BETTER or OLD_BETTER when one response is clearly more accurate or complete, SAME when they are equivalent, and BOTH_WRONG when neither is correct.

%s
Be concise.
`, len(items), strings.Join(blocks, "\n\n"),
		replyFormat("PAIR", len(items), "NEW_BETTER/OLD_BETTER/SAME/BOTH_WRONG", "brief reason", t.Structured))
}

func (ComparisonTask) Parse(reply string, n int) []model.ComparisonResult {
	return replies.Comparison(reply, n)
}

func (ComparisonTask) Failed(sentinel string) model.ComparisonResult {
	return replies.ComparisonFailed(sentinel)
}
