package replies

import (
	"strings"

	"github.com/RishavT/iitmdocs/internal/model"
)

var factCheck = parser[model.FactCheckResult]{
	task:   "fact_check",
	prefix: labelPrefix("RESPONSE"),
	vocab: map[string]bool{
		string(model.AccuracyCorrect):      true,
		string(model.AccuracyIncorrect):    true,
		string(model.AccuracyPartial):      true,
		string(model.AccuracyCannotVerify): true,
	},
	wholeBody: true,
	guess: func(u string) string {
		switch {
		case strings.Contains(u, "INCORRECT") && !strings.Contains(u, "PARTIALLY"):
			return string(model.AccuracyIncorrect)
		case strings.Contains(u, "PARTIALLY"):
			return string(model.AccuracyPartial)
		case strings.Contains(u, "CORRECT"):
			return string(model.AccuracyCorrect)
		case strings.Contains(u, "CANNOT"), strings.Contains(u, "VERIFY"):
			return string(model.AccuracyCannotVerify)
		}
		return string(model.AccuracyUnknown)
	},
	build: func(v, note string) model.FactCheckResult {
		return model.FactCheckResult{Accuracy: model.Accuracy(v), Issues: note}
	},
	pad: model.FactCheckResult{Accuracy: model.AccuracyUnknown, Issues: CouldNotParse},
	failed: func(s string) model.FactCheckResult {
		return model.FactCheckResult{Accuracy: model.AccuracyError, Issues: s}
	},
}

var answerSearch = parser[model.AnswerSearchResult]{
	task:   "answer_search",
	prefix: labelPrefix("QUESTION"),
	vocab: map[string]bool{
		string(model.SearchFound):    true,
		string(model.SearchNotFound): true,
	},
	guess: func(u string) string {
		switch {
		case strings.Contains(u, "NOT_FOUND"), strings.Contains(u, "NOT FOUND"):
			return string(model.SearchNotFound)
		case strings.Contains(u, "FOUND"):
			return string(model.SearchFound)
		}
		return string(model.SearchNotFound)
	},
	build: func(v, note string) model.AnswerSearchResult {
		return model.AnswerSearchResult{Status: model.SearchStatus(v), Answer: note}
	},
	pad: model.AnswerSearchResult{Status: model.SearchNotFound, Answer: CouldNotParse},
	failed: func(s string) model.AnswerSearchResult {
		return model.AnswerSearchResult{Status: model.SearchError, Answer: s}
	},
}

var comparison = parser[model.ComparisonResult]{
	task:   "compare",
	prefix: labelPrefix("PAIR"),
	vocab: map[string]bool{
		string(model.CompareNewBetter): true,
		string(model.CompareOldBetter): true,
		string(model.CompareSame):      true,
		string(model.CompareBothWrong): true,
	},
	guess: func(u string) string {
		switch {
		case strings.Contains(u, "BOTH_WRONG"), strings.Contains(u, "BOTH WRONG"):
			return string(model.CompareBothWrong)
		case strings.Contains(u, "NEW_BETTER"), strings.Contains(u, "NEW BETTER"):
			return string(model.CompareNewBetter)
		case strings.Contains(u, "OLD_BETTER"), strings.Contains(u, "OLD BETTER"):
			return string(model.CompareOldBetter)
		case strings.Contains(u, "SAME"), strings.Contains(u, "EQUIVALENT"):
			return string(model.CompareSame)
		}
		return string(model.CompareUnknown)
	},
	build: func(v, note string) model.ComparisonResult {
		return model.ComparisonResult{Verdict: model.ComparisonVerdict(v), Reason: note}
	},
	pad: model.ComparisonResult{Verdict: model.CompareUnknown, Reason: CouldNotParse},
	failed: func(s string) model.ComparisonResult {
		return model.ComparisonResult{Verdict: model.CompareError, Reason: s}
	},
}

// FactCheck parses a fact-check reply of lines like
// "RESPONSE 3: INCORRECT - fee is 3000 not 4000" into n results.
func FactCheck(reply string, n int) []model.FactCheckResult {
	return factCheck.parse(reply, n)
}

// FactCheckFailed is the record for an item whose batch call failed.
func FactCheckFailed(sentinel string) model.FactCheckResult {
	return factCheck.failed(sentinel)
}

// AnswerSearch parses an answer-search reply of lines like
// "QUESTION 2: FOUND - <answer>" into n results.
func AnswerSearch(reply string, n int) []model.AnswerSearchResult {
	return answerSearch.parse(reply, n)
}

// AnswerSearchFailed is the record for an item whose batch call failed.
func AnswerSearchFailed(sentinel string) model.AnswerSearchResult {
	return answerSearch.failed(sentinel)
}

// Comparison parses an old-vs-new reply of lines like
// "PAIR 1: NEW_BETTER - adds the deadline" into n results.
func Comparison(reply string, n int) []model.ComparisonResult {
	return comparison.parse(reply, n)
}

// ComparisonFailed is the record for an item whose batch call failed.
func ComparisonFailed(sentinel string) model.ComparisonResult {
	return comparison.failed(sentinel)
}
