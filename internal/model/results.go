package model

// BatchItem is one unit of work handed to the batch orchestrator.
// Index is the position of the owning row in the analyzer's record list
// and is carried unchanged through batching and parsing.
type BatchItem struct {
	Index       int    `json:"index"`
	Question    string `json:"question"`
	Response    string `json:"response"`
	NewResponse string `json:"new_response,omitempty"`
}

// Accuracy is a fact-check verdict.
type Accuracy string

const (
	AccuracyCorrect      Accuracy = "CORRECT"
	AccuracyIncorrect    Accuracy = "INCORRECT"
	AccuracyPartial      Accuracy = "PARTIALLY_CORRECT"
	AccuracyCannotVerify Accuracy = "CANNOT_VERIFY"
	AccuracyUnknown      Accuracy = "UNKNOWN"
	AccuracyError        Accuracy = "ERROR"
)

// FactCheckResult is the fact-check outcome for one answered question.
type FactCheckResult struct {
	Accuracy Accuracy `json:"accuracy"`
	Issues   string   `json:"issues"`
}

// SearchStatus is the outcome of searching the knowledge source for an
// answer the chatbot could not give.
type SearchStatus string

const (
	SearchFound    SearchStatus = "FOUND"
	SearchNotFound SearchStatus = "NOT_FOUND"
	SearchError    SearchStatus = "ERROR"
)

// AnswerSearchResult is the answer-search outcome for one unanswered question.
type AnswerSearchResult struct {
	Status SearchStatus `json:"status"`
	Answer string       `json:"answer"`
}

// ComparisonVerdict judges an old response against a new one.
type ComparisonVerdict string

const (
	CompareNewBetter ComparisonVerdict = "NEW_BETTER"
	CompareOldBetter ComparisonVerdict = "OLD_BETTER"
	CompareSame      ComparisonVerdict = "SAME"
	CompareBothWrong ComparisonVerdict = "BOTH_WRONG"
	CompareUnknown   ComparisonVerdict = "UNKNOWN"
	CompareError     ComparisonVerdict = "ERROR"
)

// ComparisonResult is the old-vs-new outcome for one question.
type ComparisonResult struct {
	Verdict ComparisonVerdict `json:"verdict"`
	Reason  string            `json:"reason"`
}
