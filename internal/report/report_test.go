package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishavT/iitmdocs/internal/model"
)

func strPtr(s string) *string { return &s }

func stagingSummary() *model.Summary {
	s := model.NewSummary("staging-logs.csv")
	s.Total, s.TotalBeforeFilter = 8, 8
	s.Valid, s.Invalid = 5, 3
	s.ValidAnswered, s.ValidCannotAnswer = 4, 1
	s.InvalidReasons = map[string]int{"greeting": 1, "malicious": 1, "out_of_context": 2}
	s.ValidCannotAnswerQueries = []model.QuerySample{{
		Question:        "What courses are in foundation level?",
		ResponseSnippet: "I'm sorry",
	}}
	s.FactChecks = []model.FactCheckEntry{
		{Question: "What is the fee for BS degree?", FactCheckResult: model.FactCheckResult{Accuracy: model.AccuracyIncorrect, Issues: "fee is Rs 3000 per course"}},
		{Question: "Is there a diploma?", FactCheckResult: model.FactCheckResult{Accuracy: model.AccuracyCorrect}},
	}
	s.FactCheckSummary = model.FactCheckSummary{Correct: 1, Incorrect: 1}
	s.LLMClassifications = 2
	s.SuccessRate, s.ValidRate = 80, 62.5
	s.Header = []string{"timestamp", "question", "response"}
	s.Records = []model.RowRecord{
		{
			Row:            model.LogRow{Line: 1, Question: "What is the fee for BS degree?", Raw: []string{"12/15/2025", "What is the fee for BS degree?", "Rs 48,000"}},
			Classification: model.Valid(model.ReasonIITMRelated),
			FactCheck:      &model.FactCheckResult{Accuracy: model.AccuracyIncorrect, Issues: "fee is Rs 3000 per course"},
			NewResponse:    "Rs 3000 per course",
			Comparison:     &model.ComparisonResult{Verdict: model.CompareNewBetter, Reason: "correct fee"},
		},
		{
			Row:            model.LogRow{Line: 2, Question: "hello", Raw: []string{"12/16/2025", "hello"}},
			Classification: model.Invalid(model.ReasonGreeting),
		},
		{
			Row:            model.LogRow{Line: 3, Question: "What courses are in foundation level?", Raw: []string{"12/17/2025", "What courses are in foundation level?", "I'm sorry"}},
			Classification: model.Valid(model.ReasonIITMRelated),
			CannotAnswer:   true,
			AnswerSearch:   &model.AnswerSearchResult{Status: model.SearchFound, Answer: "8 courses"},
		},
	}
	return s
}

func productionSummary() *model.Summary {
	s := model.NewSummary("production-logs.csv")
	s.Total, s.TotalBeforeFilter, s.FilteredOut = 2, 10, 8
	s.Valid, s.ValidAnswered = 2, 2
	after := "2026-01-01"
	s.DateRange.After = &after
	s.AnswerSearches = []model.AnswerSearchEntry{
		{Question: "When is the exam?", AnswerSearchResult: model.AnswerSearchResult{Status: model.SearchFound, Answer: "In March."}},
		{Question: "Hostel?", AnswerSearchResult: model.AnswerSearchResult{Status: model.SearchNotFound}},
	}
	s.AnswerSearchSummary = &model.AnswerSearchSummary{Found: 1, NotFound: 1}
	s.Comparisons = []model.ComparisonEntry{
		{Question: "What is the fee?", ComparisonResult: model.ComparisonResult{Verdict: model.CompareOldBetter, Reason: "new one omits the fee"}},
		{Question: "Eligibility?", ComparisonResult: model.ComparisonResult{Verdict: model.CompareNewBetter}},
	}
	s.ComparisonSummary = &model.ComparisonSummary{NewBetter: 1, OldBetter: 1}
	return s
}

func entries() []Entry {
	return []Entry{
		{Label: "Staging", Summary: stagingSummary()},
		{Label: "Production", Summary: productionSummary()},
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	require.NoError(t, Markdown(&buf, entries(), now))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Chatbot Performance Analysis Report\n"))
	assert.Contains(t, out, "**Generated:** 2026-01-05 09:30:00")
	assert.Contains(t, out, "**Date Filter:** on or after 2026-01-01")
	assert.Contains(t, out, "| Metric | Staging | Production |")
	assert.Contains(t, out, "| Total Queries | 8 | 2 |")
	assert.Contains(t, out, "| Excluded by Date | 0 of 8 | 8 of 10 |")
	assert.Contains(t, out, "| Valid Queries | 5 (62.5%) | 2 (100.0%) |")
	assert.Contains(t, out, "| Invalid Queries | 3 (37.5%) | 0 (0.0%) |")
	assert.Contains(t, out, "| Successfully Answered | 4 (80.0%) | 2 (100.0%) |")
	assert.Contains(t, out, "| Could Not Answer | 1 | 0 |")

	// breakdown is sorted by count, then name
	assert.Contains(t, out, "- out_of_context: 2\n- greeting: 1\n- malicious: 1\n")
	assert.Contains(t, out, "- What courses are in foundation level?\n")

	assert.Contains(t, out, "## Fact-Check Results")
	assert.Contains(t, out, "**Accuracy:** 1/2 responses verified as correct")
	assert.Contains(t, out, "- **INCORRECT**: What is the fee for BS degree?\n  - Issues: fee is Rs 3000 per course")
	assert.NotContains(t, out, "**CORRECT**")

	assert.Contains(t, out, "## Answer Search Results")
	assert.Contains(t, out, "**Found:** 1/2 unanswered questions")
	assert.Contains(t, out, "- **When is the exam?**\n  - Answer: In March.")

	assert.Contains(t, out, "## Old vs New Bot Comparison")
	assert.Contains(t, out, "| Verdict | Production |")
	assert.Contains(t, out, "| Old better | 1 |")
	assert.Contains(t, out, "- **OLD_BETTER**: What is the fee?\n  - Reason: new one omits the fee")

	assert.Contains(t, out, "- Staging: 2 queries classified by Claude")
	assert.Contains(t, out, "- Production: 0 queries classified by Claude")
}

func TestMarkdown_OptionalSectionsOmitted(t *testing.T) {
	s := model.NewSummary("x.csv")
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, []Entry{{Label: "Logs", Summary: s}}, time.Now()))
	out := buf.String()

	assert.Contains(t, out, "| Total Queries | 0 |")
	assert.Contains(t, out, "| Valid Queries | 0 (0.0%) |")
	assert.NotContains(t, out, "Excluded by Date")
	assert.NotContains(t, out, "Date Filter")
	assert.NotContains(t, out, "Fact-Check Results")
	assert.NotContains(t, out, "Answer Search Results")
	assert.NotContains(t, out, "Comparison")
}

func TestMarkdown_SamplesCappedAndTruncated(t *testing.T) {
	s := model.NewSummary("x.csv")
	for range 15 {
		s.ValidCannotAnswerQueries = append(s.ValidCannotAnswerQueries, model.QuerySample{Question: strings.Repeat("q", 100)})
	}
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, []Entry{{Label: "Logs", Summary: s}}, time.Now()))

	line := "- " + strings.Repeat("q", 80) + "...\n"
	assert.Equal(t, 10, strings.Count(buf.String(), line))
}

func TestMarkdown_DateRangeBoth(t *testing.T) {
	s := model.NewSummary("x.csv")
	s.DateRange = model.DateRange{After: strPtr("2025-12-16"), Before: strPtr("2025-12-19")}
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, []Entry{{Label: "Logs", Summary: s}}, time.Now()))
	assert.Contains(t, buf.String(), "**Date Filter:** 2025-12-16 to 2025-12-19 (inclusive)")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, entries()))

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Contains(t, got, "staging")
	require.Contains(t, got, "production")
	st := got["staging"]
	assert.Equal(t, "staging-logs.csv", st["filename"])
	assert.EqualValues(t, 8, st["total"])
	assert.EqualValues(t, 80, st["success_rate"])
	assert.Nil(t, st["date_range"].(map[string]any)["after"])
	assert.NotContains(t, st, "Records")
	assert.NotContains(t, st, "records")
	assert.NotContains(t, st, "answer_search_summary")
	assert.Equal(t, "2026-01-01", got["production"]["date_range"].(map[string]any)["after"])
	assert.Contains(t, got["production"], "comparison_summary")
}

func TestAnalyzedCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, AnalyzedCSV(&buf, stagingSummary()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, append([]string{"timestamp", "question", "response"}, AnalyzedColumns...), rows[0])

	assert.Equal(t, []string{
		"12/15/2025", "What is the fee for BS degree?", "Rs 48,000",
		"valid", "iitm_related", "false",
		"INCORRECT", "fee is Rs 3000 per course",
		"", "",
		"Rs 3000 per course",
		"NEW_BETTER", "correct fee",
	}, rows[1])

	// short raw rows are padded to the header width
	assert.Equal(t, []string{
		"12/16/2025", "hello", "",
		"invalid", "greeting", "",
		"", "", "", "", "", "", "",
	}, rows[2])

	assert.Equal(t, "true", rows[3][5])
	assert.Equal(t, "FOUND", rows[3][8])
	assert.Equal(t, "8 courses", rows[3][9])
}
