// Package analyzer classifies a log file's questions, queues the batched
// checks, and aggregates everything into a model.Summary.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RishavT/iitmdocs/internal/batch"
	"github.com/RishavT/iitmdocs/internal/classify"
	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/dateparse"
	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/internal/logsource"
	"github.com/RishavT/iitmdocs/internal/model"
	"github.com/RishavT/iitmdocs/pkg/chatbot"
)

// CompareMode selects which rows are re-asked to the live bot.
type CompareMode string

const (
	CompareNone           CompareMode = "none"
	CompareCouldAnswer    CompareMode = "could-answer"
	CompareCouldNotAnswer CompareMode = "could-not-answer"
	CompareBoth           CompareMode = "both"
)

// ParseCompareMode validates a --compare value. Empty means none.
func ParseCompareMode(s string) (CompareMode, error) {
	switch m := CompareMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", CompareNone:
		return CompareNone, nil
	case CompareCouldAnswer, CompareCouldNotAnswer, CompareBoth:
		return m, nil
	default:
		return "", eris.Errorf("analyzer: unknown compare mode %q (want none, could-answer, could-not-answer, both)", s)
	}
}

func (m CompareMode) includes(cannotAnswer bool) bool {
	switch m {
	case CompareBoth:
		return true
	case CompareCouldAnswer:
		return !cannotAnswer
	case CompareCouldNotAnswer:
		return cannotAnswer
	}
	return false
}

// ProgressFunc receives overall job progress in percent with a status message.
type ProgressFunc func(pct int, msg string)

// Options are the per-run analysis switches.
type Options struct {
	Range           dateparse.Range
	UseLLM          bool
	FactCheck       bool
	FactCheckSample int
	SearchAnswers   bool
	Compare         CompareMode
	Progress        ProgressFunc
}

// Analyzer holds the long-lived collaborators shared by every run.
type Analyzer struct {
	Classifier *classify.Classifier
	Escalator  *classify.Escalator

	FactCheck    batch.Orchestrator
	AnswerSearch batch.Orchestrator
	Compare      batch.Orchestrator
	Structured   bool

	Bot            chatbot.Client
	BotConcurrency int
}

// New wires an Analyzer from configuration.
func New(cfg *config.Config, inv llmtool.Invoker, cls *classify.Classifier, bot chatbot.Client) *Analyzer {
	orch := func(size int) batch.Orchestrator {
		return batch.Orchestrator{
			Invoker:   inv,
			BatchSize: size,
			Workers:   cfg.Batch.Workers,
			Timeout:   cfg.LLM.BatchTimeout,
		}
	}
	return &Analyzer{
		Classifier:     cls,
		Escalator:      classify.NewEscalator(inv, cfg.LLM.ClassifyTimeout),
		FactCheck:      orch(cfg.Batch.FactCheckSize),
		AnswerSearch:   orch(cfg.Batch.AnswerSearchSize),
		Compare:        orch(cfg.Batch.CompareSize),
		Structured:     cfg.LLM.StructuredReplies,
		Bot:            bot,
		BotConcurrency: cfg.Chatbot.Concurrency,
	}
}

// queues collects record indexes for each batched phase.
type queues struct {
	factCheck    []int
	answerSearch []int
	compare      []int
}

// Analyze runs the full analysis of one parsed log file.
func (a *Analyzer) Analyze(ctx context.Context, src *logsource.Table, opts Options) (*model.Summary, error) {
	if a.Classifier == nil {
		return nil, eris.New("analyzer: classifier is required")
	}
	if opts.Compare == "" {
		opts.Compare = CompareNone
	}
	if opts.Compare != CompareNone && a.Bot == nil {
		return nil, eris.New("analyzer: comparison requires a chatbot client")
	}
	report := opts.Progress
	if report == nil {
		report = func(int, string) {}
	}

	sum := model.NewSummary(src.Name)
	sum.Header = src.Header
	sum.DateRange.After, sum.DateRange.Before = opts.Range.Bounds()

	total := len(src.Rows)
	if total == 0 {
		report(95, "No data found in file")
		return sum, nil
	}
	report(10, fmt.Sprintf("Found %d rows, analyzing...", total))

	q := a.scan(ctx, src.Rows, opts, sum, report)

	zap.L().Info("analyzer: row scan complete",
		zap.String("file", src.Name),
		zap.Int("total", sum.Total),
		zap.Int("valid", sum.Valid),
		zap.Int("invalid", sum.Invalid),
		zap.Int("filtered_out", sum.FilteredOut),
	)

	phases := 0
	for _, n := range []int{len(q.factCheck), len(q.answerSearch), len(q.compare)} {
		if n > 0 {
			phases++
		}
	}
	lo, step := 80, 0
	if phases > 0 {
		step = 15 / phases
	}
	next := func() (int, int) {
		from := lo
		lo += step
		return from, lo
	}

	if len(q.factCheck) > 0 {
		from, to := next()
		a.runFactCheck(ctx, sum, q.factCheck, from, to, report)
	}
	if len(q.answerSearch) > 0 {
		from, to := next()
		a.runAnswerSearch(ctx, sum, q.answerSearch, from, to, report)
	}
	if len(q.compare) > 0 {
		from, to := next()
		a.runComparison(ctx, sum, q.compare, from, to, report)
	}

	report(95, "Generating summary...")
	sum.SuccessRate = rate(sum.ValidAnswered, sum.Valid)
	sum.ValidRate = rate(sum.Valid, sum.Total)
	return sum, nil
}

// scan classifies every row and fills the counters, samples and queues.
func (a *Analyzer) scan(ctx context.Context, rows []model.LogRow, opts Options, sum *model.Summary, report ProgressFunc) queues {
	var q queues
	total := len(rows)
	every := max(1, total/20)

	for i, row := range rows {
		if i%every == 0 {
			report(10+70*(i+1)/total, fmt.Sprintf("Analyzed %d/%d rows...", i+1, total))
		}

		question := strings.TrimSpace(row.Question)
		if question == "" {
			continue
		}
		sum.TotalBeforeFilter++

		ts, ok := dateparse.Parse(row.Timestamp)
		if !opts.Range.Contains(ts, ok) {
			sum.FilteredOut++
			continue
		}
		sum.Total++

		cls, matched := a.Classifier.Classify(question)
		if !matched {
			if opts.UseLLM && a.Escalator != nil {
				cls = a.Escalator.Classify(ctx, question)
				sum.LLMClassifications++
			} else {
				cls = model.Valid(model.ReasonDefaultValid)
			}
		}

		response := strings.TrimSpace(row.Response)
		row.Question, row.Response = question, response
		rec := model.RowRecord{Row: row, Classification: cls}
		idx := len(sum.Records)

		if !cls.Valid() {
			sum.Invalid++
			sum.InvalidReasons[cls.Reason]++
			sum.InvalidQueries = append(sum.InvalidQueries, model.QuerySample{
				Question: truncate(question, 150),
				Reason:   cls.Reason,
			})
			sum.Records = append(sum.Records, rec)
			continue
		}

		sum.Valid++
		rec.CannotAnswer = a.Classifier.CannotAnswer(response)
		if rec.CannotAnswer {
			sum.ValidCannotAnswer++
			sum.ValidCannotAnswerQueries = append(sum.ValidCannotAnswerQueries, model.QuerySample{
				Question:        truncate(question, 150),
				ResponseSnippet: truncate(response, 100),
			})
			if opts.SearchAnswers {
				q.answerSearch = append(q.answerSearch, idx)
			}
		} else {
			sum.ValidAnswered++
			if opts.FactCheck || (opts.FactCheckSample > 0 && len(q.factCheck) < opts.FactCheckSample) {
				q.factCheck = append(q.factCheck, idx)
			}
		}
		if opts.Compare.includes(rec.CannotAnswer) {
			q.compare = append(q.compare, idx)
		}
		sum.Records = append(sum.Records, rec)
	}

	report(80, fmt.Sprintf("Analyzed %d/%d rows", total, total))
	return q
}

func (a *Analyzer) items(sum *model.Summary, idxs []int) []model.BatchItem {
	items := make([]model.BatchItem, len(idxs))
	for i, idx := range idxs {
		r := sum.Records[idx]
		items[i] = model.BatchItem{
			Index:       idx,
			Question:    r.Row.Question,
			Response:    r.Row.Response,
			NewResponse: r.NewResponse,
		}
	}
	return items
}

func (a *Analyzer) runFactCheck(ctx context.Context, sum *model.Summary, idxs []int, from, to int, report ProgressFunc) {
	report(from, fmt.Sprintf("Starting batch fact-check of %d responses...", len(idxs)))
	items := a.items(sum, idxs)

	results := batch.Run[model.FactCheckResult](ctx, a.FactCheck, FactCheckTask{Structured: a.Structured}, items,
		Progress(from, to, report, "Fact-checking responses..."))

	for i, it := range items {
		res := results[i]
		sum.Records[it.Index].FactCheck = &res
		sum.FactChecks = append(sum.FactChecks, model.FactCheckEntry{
			Question:        truncate(it.Question, 150),
			Response:        truncate(it.Response, 100),
			FactCheckResult: res,
		})
		sum.FactCheckSummary.Add(res.Accuracy)
	}
}

func (a *Analyzer) runAnswerSearch(ctx context.Context, sum *model.Summary, idxs []int, from, to int, report ProgressFunc) {
	report(from, fmt.Sprintf("Searching answers for %d unanswered questions...", len(idxs)))
	items := a.items(sum, idxs)

	results := batch.Run[model.AnswerSearchResult](ctx, a.AnswerSearch, AnswerSearchTask{Structured: a.Structured}, items,
		Progress(from, to, report, "Searching answers..."))

	sum.AnswerSearches = make([]model.AnswerSearchEntry, 0, len(items))
	sum.AnswerSearchSummary = &model.AnswerSearchSummary{}
	for i, it := range items {
		res := results[i]
		sum.Records[it.Index].AnswerSearch = &res
		sum.AnswerSearches = append(sum.AnswerSearches, model.AnswerSearchEntry{
			Question:           truncate(it.Question, 150),
			AnswerSearchResult: res,
		})
		sum.AnswerSearchSummary.Add(res.Status)
	}
}

// runComparison asks the live bot every queued question, then batches the
// pairs whose new response arrived. Questions the bot failed on get an
// ERROR verdict without a tool call.
func (a *Analyzer) runComparison(ctx context.Context, sum *model.Summary, idxs []int, from, to int, report ProgressFunc) {
	mid := from + (to-from)/2
	report(from, fmt.Sprintf("Asking the live chatbot %d questions...", len(idxs)))

	botErrs := a.askBot(ctx, sum, idxs, Progress(from, mid, report, "Asking the live chatbot..."))

	var ready []int
	for _, idx := range idxs {
		if botErrs[idx] == "" {
			ready = append(ready, idx)
		}
	}
	items := a.items(sum, ready)
	results := batch.Run[model.ComparisonResult](ctx, a.Compare, ComparisonTask{Structured: a.Structured}, items,
		Progress(mid, to, report, "Comparing responses..."))

	verdicts := make(map[int]model.ComparisonResult, len(idxs))
	for i, it := range items {
		verdicts[it.Index] = results[i]
	}

	sum.Comparisons = make([]model.ComparisonEntry, 0, len(idxs))
	sum.ComparisonSummary = &model.ComparisonSummary{}
	for _, idx := range idxs {
		rec := &sum.Records[idx]
		res, ok := verdicts[idx]
		if !ok {
			res = model.ComparisonResult{Verdict: model.CompareError, Reason: botErrs[idx]}
		}
		rec.Comparison = &res
		sum.Comparisons = append(sum.Comparisons, model.ComparisonEntry{
			Question:         truncate(rec.Row.Question, 150),
			OldResponse:      truncate(rec.Row.Response, 100),
			NewResponse:      truncate(rec.NewResponse, 100),
			BotError:         botErrs[idx],
			ComparisonResult: res,
		})
		sum.ComparisonSummary.Add(res.Verdict)
		if ok && rec.CannotAnswer && rec.NewResponse != "" && !a.Classifier.CannotAnswer(rec.NewResponse) {
			sum.ComparisonSummary.NewlyAnswered++
		}
	}
}

// askBot fills NewResponse on each queued record and returns the failure
// message per record index.
func (a *Analyzer) askBot(ctx context.Context, sum *model.Summary, idxs []int, progress batch.Progress) map[int]string {
	var (
		mu   sync.Mutex
		done int
		errs = make(map[int]string, len(idxs))
	)

	var g errgroup.Group
	g.SetLimit(max(1, a.BotConcurrency))

	for _, idx := range idxs {
		g.Go(func() error {
			question := sum.Records[idx].Row.Question
			answer, err := a.Bot.Ask(ctx, question)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("analyzer: chatbot request failed",
					zap.String("question", truncate(question, 80)),
					zap.Error(err),
				)
				errs[idx] = fmt.Sprintf("[ERROR: %s]", err.Error())
			} else {
				sum.Records[idx].NewResponse = strings.TrimSpace(answer.Text)
			}
			done++
			progress(done, len(idxs))
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Progress adapts a ProgressFunc to a batch.Progress over [lo, hi].
func Progress(lo, hi int, report ProgressFunc, msg string) batch.Progress {
	return batch.Span(lo, hi, func(pct int) { report(pct, msg) })
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(1000*float64(part)/float64(whole)) / 10
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
