package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/analyzer"
	"github.com/RishavT/iitmdocs/internal/dateparse"
	"github.com/RishavT/iitmdocs/internal/logsource"
	"github.com/RishavT/iitmdocs/internal/model"
	"github.com/RishavT/iitmdocs/internal/report"
)

// analyzeOptions holds the analyze command's flags.
type analyzeOptions struct {
	stagingFile     string
	productionFile  string
	output          string
	analyzedCSV     string
	onOrAfter       string
	onOrBefore      string
	useLLM          bool
	factCheck       bool
	factCheckSample int
	searchAnswers   bool
	compare         string
	botURL          string
	workers         int
	batchSize       int
}

var analyzeFlags analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze staging and production chatbot logs",
	Example: `  # Basic analysis
  loganalyzer analyze

  # Inclusive date range
  loganalyzer analyze --on-or-after 2025-12-01 --on-or-before 2026-01-01

  # Single file with fact-checking
  loganalyzer analyze --staging-file /tmp/logs.csv --production-file /dev/null --fact-check

  # Re-ask unanswered questions to the live bot and compare
  loganalyzer analyze --compare could-not-answer --bot-url http://localhost:8787`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runAnalyze(ctx, cmd.OutOrStdout(), analyzeFlags)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.stagingFile, "staging-file", "staging-logs.csv", "staging log file (.csv or .xlsx); empty or /dev/null skips it")
	f.StringVar(&analyzeFlags.productionFile, "production-file", "production-logs.csv", "production log file (.csv or .xlsx); empty or /dev/null skips it")
	f.StringVar(&analyzeFlags.output, "output", "chatbot-analysis-report.md", "Markdown report path; JSON is written beside it")
	f.StringVar(&analyzeFlags.analyzedCSV, "analyzed-csv", "", "directory for per-file analyzed CSVs")
	f.StringVar(&analyzeFlags.onOrAfter, "on-or-after", "", "only analyze records on or after this date (YYYY-MM-DD)")
	f.StringVar(&analyzeFlags.onOrBefore, "on-or-before", "", "only analyze records on or before this date (YYYY-MM-DD)")
	f.BoolVar(&analyzeFlags.useLLM, "use-llm", false, "ask Claude to classify questions no rule matches")
	f.BoolVar(&analyzeFlags.factCheck, "fact-check", false, "fact-check every valid answered response")
	f.IntVar(&analyzeFlags.factCheckSample, "fact-check-sample", 0, "fact-check only the first N valid answered responses")
	f.BoolVar(&analyzeFlags.searchAnswers, "search-answers", false, "search the documents for answers to unanswered questions")
	f.StringVar(&analyzeFlags.compare, "compare", "none", "re-ask questions to the live bot: none, could-answer, could-not-answer, both")
	f.StringVar(&analyzeFlags.botURL, "bot-url", "", "live chatbot base URL (default from config)")
	f.IntVar(&analyzeFlags.workers, "workers", 0, "concurrent tool invocations (default from config)")
	f.IntVar(&analyzeFlags.batchSize, "batch-size", 0, "items per tool invocation for every batched task (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

// logInput is one labelled input file.
type logInput struct {
	label string
	path  string
}

func (o analyzeOptions) inputs() []logInput {
	var in []logInput
	for _, li := range []logInput{{"Staging", o.stagingFile}, {"Production", o.productionFile}} {
		if li.path == "" || li.path == os.DevNull {
			continue
		}
		in = append(in, li)
	}
	return in
}

func runAnalyze(ctx context.Context, out io.Writer, o analyzeOptions) error {
	rng, err := dateparse.NewRange(o.onOrAfter, o.onOrBefore)
	if err != nil {
		return err
	}
	mode, err := analyzer.ParseCompareMode(o.compare)
	if err != nil {
		return err
	}

	inputs := o.inputs()
	if len(inputs) == 0 {
		return eris.New("no input files: set --staging-file or --production-file")
	}
	for _, in := range inputs {
		if _, err := os.Stat(in.path); err != nil {
			return eris.Errorf("File not found: %s", in.path)
		}
	}

	applyOverrides(o)
	if err := cfg.Validate("analyze"); err != nil {
		return err
	}

	an, err := initAnalyzer(cfg, mode != analyzer.CompareNone)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "CHATBOT LOG ANALYSIS")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	if rng.Active() {
		fmt.Fprintln(out, "\nDate Filter:")
		after, before := rng.Bounds()
		if after != nil {
			fmt.Fprintf(out, "   On or after: %s\n", *after)
		}
		if before != nil {
			fmt.Fprintf(out, "   On or before: %s\n", *before)
		}
	}

	opts := analyzer.Options{
		Range:           rng,
		UseLLM:          o.useLLM,
		FactCheck:       o.factCheck,
		FactCheckSample: o.factCheckSample,
		SearchAnswers:   o.searchAnswers,
		Compare:         mode,
	}

	var entries []report.Entry
	for _, in := range inputs {
		fmt.Fprintf(out, "\nAnalyzing %s...\n", in.path)

		table, err := logsource.ReadFile(ctx, in.path)
		if err != nil {
			return err
		}

		runOpts := opts
		runOpts.Progress = func(pct int, msg string) {
			zap.L().Debug("analyze: progress", zap.String("file", in.path), zap.Int("pct", pct), zap.String("msg", msg))
		}
		sum, err := an.Analyze(ctx, table, runOpts)
		if err != nil {
			return eris.Wrapf(err, "analyze %s", in.path)
		}
		printSummary(out, sum)

		if o.analyzedCSV != "" {
			path, err := writeAnalyzedCSV(o.analyzedCSV, in.path, sum)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "   Analyzed CSV: %s\n", path)
		}
		entries = append(entries, report.Entry{Label: in.label, Summary: sum})
	}

	fmt.Fprintln(out, "\nGenerating report...")
	if err := writeFile(o.output, func(w io.Writer) error {
		return report.Markdown(w, entries, time.Now())
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Report saved to: %s\n", o.output)

	jsonPath := jsonOutputPath(o.output)
	if err := writeFile(jsonPath, func(w io.Writer) error {
		return report.JSON(w, entries)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Detailed JSON saved to: %s\n", jsonPath)

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(out, "ANALYSIS COMPLETE")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	return nil
}

func applyOverrides(o analyzeOptions) {
	if o.workers > 0 {
		cfg.Batch.Workers = o.workers
	}
	if o.batchSize > 0 {
		cfg.Batch.FactCheckSize = o.batchSize
		cfg.Batch.AnswerSearchSize = o.batchSize
		cfg.Batch.CompareSize = o.batchSize
	}
	if o.botURL != "" {
		cfg.Chatbot.BaseURL = o.botURL
	}
}

func printSummary(out io.Writer, s *model.Summary) {
	if s.FilteredOut > 0 {
		fmt.Fprintf(out, "   Filtered: %d/%d records (excluded %d by date)\n", s.Total, s.TotalBeforeFilter, s.FilteredOut)
	}
	fmt.Fprintf(out, "   Total: %d, Valid: %d, Invalid: %d\n", s.Total, s.Valid, s.Invalid)
	fmt.Fprintf(out, "   Answered: %d, Cannot answer: %d\n", s.ValidAnswered, s.ValidCannotAnswer)
	if len(s.FactChecks) > 0 {
		fc := s.FactCheckSummary
		fmt.Fprintf(out, "   Fact-check: %d correct, %d incorrect, %d partial\n", fc.Correct, fc.Incorrect, fc.Partial)
	}
	if as := s.AnswerSearchSummary; as != nil {
		fmt.Fprintf(out, "   Answer search: %d found, %d not found\n", as.Found, as.NotFound)
	}
	if cs := s.ComparisonSummary; cs != nil {
		fmt.Fprintf(out, "   Comparison: %d new better, %d old better, %d same, %d newly answered\n",
			cs.NewBetter, cs.OldBetter, cs.Same, cs.NewlyAnswered)
	}
}

// jsonOutputPath swaps a trailing .md for .json, or appends .json.
func jsonOutputPath(output string) string {
	if base, ok := strings.CutSuffix(output, ".md"); ok {
		return base + ".json"
	}
	return output + ".json"
}

func writeAnalyzedCSV(dir, input string, s *model.Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create %s", dir)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	path := filepath.Join(dir, base+"-analyzed.csv")
	return path, writeFile(path, func(w io.Writer) error {
		return report.AnalyzedCSV(w, s)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
