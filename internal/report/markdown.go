// Package report renders analysis summaries as Markdown, JSON and CSV.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/model"
)

// Entry is one analysed file with the label used for its report column.
type Entry struct {
	Label   string
	Summary *model.Summary
}

const maxSamples = 10

// Markdown writes the human-readable report with one column per entry.
func Markdown(w io.Writer, entries []Entry, now time.Time) error {
	var b strings.Builder

	b.WriteString("# Chatbot Performance Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("**Analysis Method:** rule-based classification + batched Claude review\n")
	if dr := dateFilter(entries); dr != "" {
		fmt.Fprintf(&b, "**Date Filter:** %s\n", dr)
	}

	b.WriteString("\n---\n\n## Executive Summary\n\n")
	writeSummaryTable(&b, entries)

	b.WriteString("\n---\n\n## Invalid Query Breakdown\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n### %s\n", e.Label)
		for _, rc := range sortedReasons(e.Summary.InvalidReasons) {
			fmt.Fprintf(&b, "- %s: %d\n", rc.reason, rc.count)
		}
	}

	b.WriteString("\n---\n\n## Sample Unanswered Valid Queries\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n### %s\n", e.Label)
		for i, q := range e.Summary.ValidCannotAnswerQueries {
			if i == maxSamples {
				break
			}
			fmt.Fprintf(&b, "- %s\n", ellipsis(q.Question, 80))
		}
	}

	writeFactChecks(&b, entries)
	writeAnswerSearches(&b, entries)
	writeComparisons(&b, entries)

	b.WriteString("\n---\n\n## LLM Classification Stats\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %d queries classified by Claude\n", e.Label, e.Summary.LLMClassifications)
	}
	b.WriteString("\n---\n\n*Report generated by loganalyzer*\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write markdown")
	}
	return nil
}

func writeSummaryTable(b *strings.Builder, entries []Entry) {
	b.WriteString("| Metric |")
	for _, e := range entries {
		fmt.Fprintf(b, " %s |", e.Label)
	}
	b.WriteString("\n|--------|")
	for range entries {
		b.WriteString("------|")
	}
	b.WriteString("\n")

	row := func(name string, cell func(s *model.Summary) string) {
		fmt.Fprintf(b, "| %s |", name)
		for _, e := range entries {
			fmt.Fprintf(b, " %s |", cell(e.Summary))
		}
		b.WriteString("\n")
	}

	row("Total Queries", func(s *model.Summary) string { return fmt.Sprint(s.Total) })
	if anyFiltered(entries) {
		row("Excluded by Date", func(s *model.Summary) string {
			return fmt.Sprintf("%d of %d", s.FilteredOut, s.TotalBeforeFilter)
		})
	}
	row("Valid Queries", func(s *model.Summary) string { return withPct(s.Valid, s.Total) })
	row("Invalid Queries", func(s *model.Summary) string { return withPct(s.Invalid, s.Total) })
	row("Successfully Answered", func(s *model.Summary) string { return withPct(s.ValidAnswered, s.Valid) })
	row("Could Not Answer", func(s *model.Summary) string { return fmt.Sprint(s.ValidCannotAnswer) })
}

func writeFactChecks(b *strings.Builder, entries []Entry) {
	var all []model.FactCheckEntry
	for _, e := range entries {
		all = append(all, e.Summary.FactChecks...)
	}
	if len(all) == 0 {
		return
	}

	b.WriteString("\n---\n\n## Fact-Check Results\n")
	correct := 0
	for _, c := range all {
		if c.Accuracy == model.AccuracyCorrect {
			correct++
		}
	}
	fmt.Fprintf(b, "\n**Accuracy:** %d/%d responses verified as correct\n", correct, len(all))

	for _, c := range all {
		if c.Accuracy == model.AccuracyCorrect {
			continue
		}
		fmt.Fprintf(b, "\n- **%s**: %s\n", c.Accuracy, ellipsis(c.Question, 60))
		if c.Issues != "" {
			fmt.Fprintf(b, "  - Issues: %s\n", c.Issues)
		}
	}
}

func writeAnswerSearches(b *strings.Builder, entries []Entry) {
	var all []model.AnswerSearchEntry
	for _, e := range entries {
		all = append(all, e.Summary.AnswerSearches...)
	}
	if len(all) == 0 {
		return
	}

	b.WriteString("\n---\n\n## Answer Search Results\n")
	found := 0
	for _, a := range all {
		if a.Status == model.SearchFound {
			found++
		}
	}
	fmt.Fprintf(b, "\n**Found:** %d/%d unanswered questions have an answer in the documents\n", found, len(all))

	for _, a := range all {
		if a.Status != model.SearchFound {
			continue
		}
		fmt.Fprintf(b, "\n- **%s**\n  - Answer: %s\n", ellipsis(a.Question, 80), a.Answer)
	}
}

func writeComparisons(b *strings.Builder, entries []Entry) {
	var with []Entry
	for _, e := range entries {
		if e.Summary.ComparisonSummary != nil {
			with = append(with, e)
		}
	}
	if len(with) == 0 {
		return
	}

	b.WriteString("\n---\n\n## Old vs New Bot Comparison\n\n")
	b.WriteString("| Verdict |")
	for _, e := range with {
		fmt.Fprintf(b, " %s |", e.Label)
	}
	b.WriteString("\n|---------|")
	for range with {
		b.WriteString("------|")
	}
	b.WriteString("\n")

	row := func(name string, get func(c *model.ComparisonSummary) int) {
		fmt.Fprintf(b, "| %s |", name)
		for _, e := range with {
			fmt.Fprintf(b, " %d |", get(e.Summary.ComparisonSummary))
		}
		b.WriteString("\n")
	}
	row("New better", func(c *model.ComparisonSummary) int { return c.NewBetter })
	row("Old better", func(c *model.ComparisonSummary) int { return c.OldBetter })
	row("Same", func(c *model.ComparisonSummary) int { return c.Same })
	row("Both wrong", func(c *model.ComparisonSummary) int { return c.BothWrong })
	row("Newly answered", func(c *model.ComparisonSummary) int { return c.NewlyAnswered })
	row("Errors", func(c *model.ComparisonSummary) int { return c.Error })

	// regressions are the actionable part
	for _, e := range with {
		for _, c := range e.Summary.Comparisons {
			if c.Verdict != model.CompareOldBetter && c.Verdict != model.CompareBothWrong {
				continue
			}
			fmt.Fprintf(b, "\n- **%s**: %s\n", c.Verdict, ellipsis(c.Question, 60))
			if c.Reason != "" {
				fmt.Fprintf(b, "  - Reason: %s\n", c.Reason)
			}
		}
	}
}

type reasonCount struct {
	reason string
	count  int
}

// sortedReasons orders the histogram by count, then by name.
func sortedReasons(m map[string]int) []reasonCount {
	out := make([]reasonCount, 0, len(m))
	for r, c := range m {
		out = append(out, reasonCount{r, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].reason < out[j].reason
	})
	return out
}

func withPct(part, whole int) string {
	return fmt.Sprintf("%d (%.1f%%)", part, 100*float64(part)/float64(max(whole, 1)))
}

func anyFiltered(entries []Entry) bool {
	for _, e := range entries {
		if e.Summary.FilteredOut > 0 {
			return true
		}
	}
	return false
}

func dateFilter(entries []Entry) string {
	for _, e := range entries {
		dr := e.Summary.DateRange
		switch {
		case dr.After != nil && dr.Before != nil:
			return fmt.Sprintf("%s to %s (inclusive)", *dr.After, *dr.Before)
		case dr.After != nil:
			return "on or after " + *dr.After
		case dr.Before != nil:
			return "on or before " + *dr.Before
		}
	}
	return ""
}

func ellipsis(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
