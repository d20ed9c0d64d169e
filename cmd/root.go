package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/config"
)

var cfg *config.Config

var rootFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "loganalyzer",
	Short: "Chatbot log analyzer for the IITM BS admissions bot",
	Long: `Classifies the questions in exported chatbot logs, flags unanswered and
incorrect responses with batched Claude review, and writes Markdown, JSON
and CSV reports. The serve command runs the same analysis behind an upload
page.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(rootFlags.configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rootFlags.logLevel != "" {
			c.Log.Level = rootFlags.logLevel
		}
		if rootFlags.logFormat != "" {
			c.Log.Format = rootFlags.logFormat
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configFile, "config", "", "config file (default ./config.yaml when present)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "override log.format (console or json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
