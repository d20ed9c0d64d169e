package main

import (
	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/analyzer"
	"github.com/RishavT/iitmdocs/internal/classify"
	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/pkg/chatbot"
)

// initAnalyzer builds the tool invoker, classifier and, when withBot is
// set, the live chatbot client, and wires them into an Analyzer.
func initAnalyzer(c *config.Config, withBot bool) (*analyzer.Analyzer, error) {
	inv, err := llmtool.New(c.LLM)
	if err != nil {
		return nil, eris.Wrap(err, "init llm tool")
	}

	rules, err := classify.LoadRules(c.Classifier.RulesFile)
	if err != nil {
		return nil, err
	}
	cls, err := classify.New(rules)
	if err != nil {
		return nil, err
	}

	var bot chatbot.Client
	if withBot {
		if c.Chatbot.BaseURL == "" {
			return nil, eris.New("comparison requires chatbot.base_url (or --bot-url)")
		}
		bot = chatbot.NewClient(c.Chatbot.BaseURL,
			chatbot.WithNDocs(c.Chatbot.NDocs),
			chatbot.WithTimeout(c.Chatbot.Timeout),
			chatbot.WithRateLimit(c.Chatbot.RequestsPerSec),
			chatbot.WithRetry(c.Chatbot.MaxAttempts),
		)
	}

	return analyzer.New(c, inv, cls, bot), nil
}
