package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode
// ("analyze" or "serve") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadBytes <= 0 {
			errs = append(errs, "server.max_upload_bytes must be > 0")
		}
		if c.Server.StreamInterval <= 0 {
			errs = append(errs, "server.stream_interval must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.LLM.Provider {
	case "cli":
		if c.LLM.Binary == "" {
			errs = append(errs, "llm.binary is required for the cli provider")
		}
	case "api":
		if c.LLM.Key == "" {
			errs = append(errs, "llm.key is required for the api provider")
		}
	default:
		errs = append(errs, "llm.provider must be one of cli, api")
	}

	if c.Batch.Workers < 1 || c.Batch.Workers > 32 {
		errs = append(errs, "batch.workers must be between 1 and 32")
	}
	for name, size := range map[string]int{
		"batch.fact_check_size":    c.Batch.FactCheckSize,
		"batch.answer_search_size": c.Batch.AnswerSearchSize,
		"batch.compare_size":       c.Batch.CompareSize,
	} {
		if size < 1 {
			errs = append(errs, name+" must be >= 1")
		}
	}

	switch c.Store.Driver {
	case "", "none":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the "+c.Store.Driver+" driver")
		}
	default:
		errs = append(errs, "store.driver must be one of none, sqlite, postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
