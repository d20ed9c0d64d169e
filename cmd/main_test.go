package main

import (
	"time"

	"github.com/RishavT/iitmdocs/internal/config"
)

// testConfig returns a Config populated with the defaults the commands
// rely on, without reading config.yaml.
func testConfig() *config.Config {
	c := &config.Config{}
	c.LLM.Provider = "cli"
	c.LLM.Binary = "claude"
	c.LLM.ClassifyTimeout = 30 * time.Second
	c.LLM.BatchTimeout = 180 * time.Second
	c.Batch.FactCheckSize = 25
	c.Batch.AnswerSearchSize = 25
	c.Batch.CompareSize = 10
	c.Batch.Workers = 4
	c.Chatbot.BaseURL = "http://localhost:8787"
	c.Chatbot.NDocs = 5
	c.Chatbot.Timeout = 30 * time.Second
	c.Chatbot.RequestsPerSec = 2
	c.Chatbot.Concurrency = 1
	c.Chatbot.MaxAttempts = 3
	c.Server.Port = 5123
	c.Server.MaxUploadBytes = 16 << 20
	c.Server.StreamInterval = 500 * time.Millisecond
	c.Jobs.TTL = time.Hour
	c.Jobs.MaxConcurrent = 2
	c.Store.Driver = "none"
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}
