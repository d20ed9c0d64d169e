package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/analyzer"
	"github.com/RishavT/iitmdocs/internal/dateparse"
	"github.com/RishavT/iitmdocs/internal/logsource"
	"github.com/RishavT/iitmdocs/internal/model"
)

// multipart memory above this spills to temp files.
const formMemory = 8 << 20

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "Invalid form: "+err.Error())
			return
		}
	}

	if !s.authorized(r.FormValue("password")) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close() //nolint:errcheck

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if _, err := logsource.DetectFormat(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, "File must be a CSV or XLSX")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}
	table, err := logsource.Read(r.Context(), header.Filename, bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	if len(table.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "Uploaded file has no log rows")
		return
	}

	start := strings.TrimSpace(r.FormValue("start_date"))
	end := strings.TrimSpace(r.FormValue("end_date"))
	after, err := dateparse.ParseStrict(start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date: "+start)
		return
	}
	before, err := dateparse.ParseStrict(end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date: "+end)
		return
	}

	opts := analyzer.Options{
		Range:         dateparse.Range{After: after, Before: before},
		FactCheck:     formBool(r.FormValue("fact_check")),
		SearchAnswers: formBool(r.FormValue("search_answers")),
	}

	job := s.runner.Submit(header.Filename, func(ctx context.Context, report func(int, string)) (*model.Summary, error) {
		opts.Progress = report
		return s.analyzer.Analyze(ctx, table, opts)
	})

	zap.L().Info("server: analysis queued",
		zap.String("job", job.ID),
		zap.String("file", header.Filename),
		zap.Int("rows", len(table.Rows)),
		zap.Bool("fact_check", opts.FactCheck),
		zap.Bool("search_answers", opts.SearchAnswers),
	)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

func (s *Server) authorized(given string) bool {
	if s.cfg.Password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.cfg.Password)) == 1
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}
