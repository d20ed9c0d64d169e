// Package logsource reads chatbot transcript logs from CSV or XLSX files.
package logsource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/model"
)

// Format is a supported log file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is a parsed log file: its header and its data rows in file order.
type Table struct {
	Name   string
	Format Format
	Header []string
	Rows   []model.LogRow
}

// DetectFormat picks the format from the file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("logsource: unsupported file type %q", filepath.Ext(name))
	}
}

// ReadFile opens and parses the log file at path.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "logsource: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Read(ctx, path, f)
}

// Read parses a log file from r. The name selects the format.
func Read(ctx context.Context, name string, r io.Reader) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "logsource: read xlsx")
		}
		records, err = readXLSX(data)
		if err != nil {
			return nil, err
		}
	default:
		records, err = readCSV(ctx, r)
		if err != nil {
			return nil, err
		}
	}

	t, err := buildTable(name, records)
	if err != nil {
		return nil, err
	}
	t.Format = format

	zap.L().Debug("logsource: read file",
		zap.String("name", name),
		zap.String("format", string(format)),
		zap.Int("rows", len(t.Rows)),
	)
	return t, nil
}

// columns holds the positions of the known header fields, -1 if absent.
type columns struct {
	question, response, timestamp, date int
}

func mapHeader(header []string) columns {
	c := columns{question: -1, response: -1, timestamp: -1, date: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "question":
			c.question = i
		case "response":
			c.response = i
		case "timestamp":
			c.timestamp = i
		case "date":
			c.date = i
		}
	}
	return c
}

func buildTable(name string, records [][]string) (*Table, error) {
	t := &Table{Name: name, Rows: []model.LogRow{}}
	if len(records) == 0 {
		return t, nil
	}

	t.Header = records[0]
	cols := mapHeader(t.Header)
	if cols.question < 0 {
		return nil, eris.Errorf("logsource: %s has no question column", filepath.Base(name))
	}

	for i, rec := range records[1:] {
		row := model.LogRow{
			Line:     i + 1,
			Question: cell(rec, cols.question),
			Response: cell(rec, cols.response),
			Raw:      rec,
		}
		// timestamp, falling back to date when empty
		row.Timestamp = cell(rec, cols.timestamp)
		if row.Timestamp == "" {
			row.Timestamp = cell(rec, cols.date)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
