package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/model"
)

// AnalyzedColumns are appended to the original header in the analyzed CSV.
var AnalyzedColumns = []string{
	"classification",
	"reason",
	"cannot_answer",
	"fact_check_accuracy",
	"fact_check_issues",
	"answer_search_status",
	"answer_search_answer",
	"new_bot_response",
	"comparison_verdict",
	"comparison_reason",
}

// AnalyzedCSV writes every analysed row with its original cells followed
// by the analysis columns. Rows skipped for a blank question or excluded
// by the date filter are not written.
func AnalyzedCSV(w io.Writer, s *model.Summary) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, s.Header...), AnalyzedColumns...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}

	width := len(s.Header)
	for _, rec := range s.Records {
		row := make([]string, width, width+len(AnalyzedColumns))
		copy(row, rec.Row.Raw)
		row = append(row, analyzedCells(rec)...)
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write csv row %d", rec.Row.Line)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

func analyzedCells(rec model.RowRecord) []string {
	cells := []string{
		string(rec.Classification.Verdict),
		rec.Classification.Reason,
		"",
		"", "",
		"", "",
		rec.NewResponse,
		"", "",
	}
	if rec.Classification.Valid() {
		cells[2] = strconv.FormatBool(rec.CannotAnswer)
	}
	if fc := rec.FactCheck; fc != nil {
		cells[3], cells[4] = string(fc.Accuracy), fc.Issues
	}
	if as := rec.AnswerSearch; as != nil {
		cells[5], cells[6] = string(as.Status), as.Answer
	}
	if c := rec.Comparison; c != nil {
		cells[8], cells[9] = string(c.Verdict), c.Reason
	}
	return cells
}
