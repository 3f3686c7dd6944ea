package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qe-tools/quality-atlas/pkg/server"
	"github.com/qe-tools/quality-atlas/pkg/services/analytics"
	capasvc "github.com/qe-tools/quality-atlas/pkg/services/capa"
	"github.com/qe-tools/quality-atlas/pkg/services/compliance"
	"github.com/qe-tools/quality-atlas/pkg/services/config"
	devsvc "github.com/qe-tools/quality-atlas/pkg/services/deviation"
	"github.com/qe-tools/quality-atlas/pkg/services/escalation"
	"github.com/qe-tools/quality-atlas/pkg/services/problem"
	"github.com/qe-tools/quality-atlas/pkg/store/sqlite"
	auditstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/audit"
	capastore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/capa"
	devstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/deviation"
	seqstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/sequence"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Quality Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "quality-atlas.yaml",
		"Path to the quality-atlas config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}

	deviations, err := devstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create deviation store: %w", err)
	}
	actions, err := capastore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create capa store: %w", err)
	}
	sequences, err := seqstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create sequence store: %w", err)
	}
	audit, err := auditstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}

	var notifier escalation.Notifier
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" && cfg.SlackChannel != "" {
		notifier, err = escalation.NewSlackNotifier(token, cfg.SlackChannel, logger)
		if err != nil {
			return fmt.Errorf("failed to create slack notifier: %w", err)
		}
		logger.Info().Str("channel", cfg.SlackChannel).Msg("escalation notices go to slack")
	} else {
		notifier = escalation.NewLogNotifier(logger)
		logger.Info().Msg("no slack configured, escalation notices go to the log")
	}

	deviationSvc, err := devsvc.NewService(deviations, sequences, audit)
	if err != nil {
		return fmt.Errorf("failed to create deviation service: %w", err)
	}
	capaSvc, err := capasvc.NewService(actions, deviations, sequences, audit, notifier)
	if err != nil {
		return fmt.Errorf("failed to create capa service: %w", err)
	}
	analyticsSvc, err := analytics.NewService(deviations)
	if err != nil {
		return fmt.Errorf("failed to create analytics service: %w", err)
	}

	var generator problem.Generator
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		generator, err = problem.NewGenerator(key, cfg.AnthropicModel)
		if err != nil {
			return fmt.Errorf("failed to create problem statement generator: %w", err)
		}
	} else {
		logger.Warn().Msg("ANTHROPIC_API_KEY not set, problem statement generation disabled")
		generator = problem.Disabled{}
	}

	var checker compliance.Checker
	if cfg.ComplianceURL != "" {
		checker, err = compliance.NewChecker(cfg.ComplianceURL, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to create compliance checker: %w", err)
		}
	} else {
		logger.Warn().Msg("compliance_url not set, compliance checks disabled")
		checker = compliance.Disabled{}
	}

	sweeper, err := escalation.NewSweeper(actions, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create overdue sweeper: %w", err)
	}
	scheduler := cron.New()
	if err := sweeper.Schedule(scheduler, cfg.EscalationCron); err != nil {
		return err
	}
	scheduler.Start()

	api := server.NewWebAPI(server.Config{
		Addr:              cfg.ServerAddr,
		ShutdownTimeout:   10 * time.Second,
		TargetDaysToClose: cfg.TargetDaysToClose,
		OnShutdown: func() {
			<-scheduler.Stop().Done()
		},
		Dependencies: server.Dependencies{
			Deviations: deviationSvc,
			Actions:    capaSvc,
			Analytics:  analyticsSvc,
			Generator:  generator,
			Checker:    checker,
			Logger:     logger,
		},
	})

	return api.Start()
}
