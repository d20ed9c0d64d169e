package model

// DateRange echoes the applied date filter in YYYY-MM-DD form.
type DateRange struct {
	After  *string `json:"after"`
	Before *string `json:"before"`
}

// QuerySample is a truncated question kept for the report.
type QuerySample struct {
	Question        string `json:"question"`
	Reason          string `json:"reason,omitempty"`
	ResponseSnippet string `json:"response_snippet,omitempty"`
}

// FactCheckEntry pairs a fact-check result with its question.
type FactCheckEntry struct {
	Question string `json:"question"`
	Response string `json:"response"`
	FactCheckResult
}

// AnswerSearchEntry pairs an answer-search result with its question.
type AnswerSearchEntry struct {
	Question string `json:"question"`
	AnswerSearchResult
}

// ComparisonEntry pairs a comparison verdict with both responses.
type ComparisonEntry struct {
	Question    string `json:"question"`
	OldResponse string `json:"old_response"`
	NewResponse string `json:"new_response"`
	BotError    string `json:"bot_error,omitempty"`
	ComparisonResult
}

// FactCheckSummary buckets fact-check verdicts.
type FactCheckSummary struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Partial   int `json:"partial"`
	Error     int `json:"error"`
}

// Add counts one fact-check result.
func (s *FactCheckSummary) Add(a Accuracy) {
	switch a {
	case AccuracyCorrect:
		s.Correct++
	case AccuracyIncorrect:
		s.Incorrect++
	case AccuracyPartial:
		s.Partial++
	default:
		s.Error++
	}
}

// AnswerSearchSummary buckets answer-search outcomes.
type AnswerSearchSummary struct {
	Found    int `json:"found"`
	NotFound int `json:"not_found"`
	Error    int `json:"error"`
}

// Add counts one answer-search result.
func (s *AnswerSearchSummary) Add(st SearchStatus) {
	switch st {
	case SearchFound:
		s.Found++
	case SearchNotFound:
		s.NotFound++
	default:
		s.Error++
	}
}

// ComparisonSummary buckets comparison verdicts.
type ComparisonSummary struct {
	NewBetter     int `json:"new_better"`
	OldBetter     int `json:"old_better"`
	Same          int `json:"same"`
	BothWrong     int `json:"both_wrong"`
	NewlyAnswered int `json:"newly_answered"`
	Error         int `json:"error"`
}

// Add counts one comparison verdict.
func (s *ComparisonSummary) Add(v ComparisonVerdict) {
	switch v {
	case CompareNewBetter:
		s.NewBetter++
	case CompareOldBetter:
		s.OldBetter++
	case CompareSame:
		s.Same++
	case CompareBothWrong:
		s.BothWrong++
	default:
		s.Error++
	}
}

// RowRecord is the per-row analysis outcome, in arrival order.
type RowRecord struct {
	Row            LogRow              `json:"row"`
	Classification Classification      `json:"classification"`
	CannotAnswer   bool                `json:"cannot_answer"`
	FactCheck      *FactCheckResult    `json:"fact_check,omitempty"`
	AnswerSearch   *AnswerSearchResult `json:"answer_search,omitempty"`
	NewResponse    string              `json:"new_response,omitempty"`
	Comparison     *ComparisonResult   `json:"comparison,omitempty"`
}

// Summary is the aggregate analysis of one log file. Records holds the
// row-level detail and is excluded from JSON output.
type Summary struct {
	Filename                 string               `json:"filename"`
	Total                    int                  `json:"total"`
	TotalBeforeFilter        int                  `json:"total_before_filter"`
	FilteredOut              int                  `json:"filtered_out"`
	DateRange                DateRange            `json:"date_range"`
	Valid                    int                  `json:"valid"`
	Invalid                  int                  `json:"invalid"`
	InvalidReasons           map[string]int       `json:"invalid_reasons"`
	ValidAnswered            int                  `json:"valid_answered"`
	ValidCannotAnswer        int                  `json:"valid_cannot_answer"`
	ValidCannotAnswerQueries []QuerySample        `json:"valid_cannot_answer_queries"`
	InvalidQueries           []QuerySample        `json:"invalid_queries"`
	FactChecks               []FactCheckEntry     `json:"fact_checks"`
	FactCheckSummary         FactCheckSummary     `json:"fact_check_summary"`
	AnswerSearches           []AnswerSearchEntry  `json:"answer_searches,omitempty"`
	AnswerSearchSummary      *AnswerSearchSummary `json:"answer_search_summary,omitempty"`
	Comparisons              []ComparisonEntry    `json:"comparisons,omitempty"`
	ComparisonSummary        *ComparisonSummary   `json:"comparison_summary,omitempty"`
	LLMClassifications       int                  `json:"llm_classifications"`
	SuccessRate              float64              `json:"success_rate"`
	ValidRate                float64              `json:"valid_rate"`

	Header  []string    `json:"-"`
	Records []RowRecord `json:"-"`
}

// NewSummary returns an empty summary with initialized collections.
func NewSummary(filename string) *Summary {
	return &Summary{
		Filename:                 filename,
		InvalidReasons:           make(map[string]int),
		ValidCannotAnswerQueries: []QuerySample{},
		InvalidQueries:           []QuerySample{},
		FactChecks:               []FactCheckEntry{},
	}
}
