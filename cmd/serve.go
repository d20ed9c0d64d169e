package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/jobs"
	"github.com/RishavT/iitmdocs/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the log upload web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		an, err := initAnalyzer(cfg, false)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		runner := jobs.New(ctx, st, cfg.Jobs.TTL)
		runner.SetLimit(cfg.Jobs.MaxConcurrent)
		runner.StartSweeper(cfg.Jobs.SweepInterval)
		defer runner.Wait()

		zap.L().Info("serve: starting",
			zap.String("store", cfg.Store.Driver),
			zap.Duration("job_ttl", cfg.Jobs.TTL),
			zap.Int("max_concurrent", cfg.Jobs.MaxConcurrent),
		)
		return server.New(cfg.Server, runner, an).ListenAndServe(ctx, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
