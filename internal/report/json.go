package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// JSON writes the aggregate results keyed by lower-cased entry label.
// Row-level detail is not included.
func JSON(w io.Writer, entries []Entry) error {
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[strings.ToLower(e.Label)] = e.Summary
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}
