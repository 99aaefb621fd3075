package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm/gemini"
	"github.com/joseph-ayodele/proforma-verifier/internal/pipeline"
	"github.com/joseph-ayodele/proforma-verifier/internal/rules"
)

type app struct {
	configPath string
	cfg        *common.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "proforma-verifier",
		Short:         "Verify proforma invoices with Gemini structured extraction",
		Version:       version,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.Log)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "optional config file (yaml, json or toml)")

	rootCmd.AddCommand(newServeCommand(a), newVerifyCommand(a))
	return rootCmd
}

func newLogger(c common.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildVerifier wires the extractor for the configured transport into the pipeline.
// The returned close func must be called once the verifier is no longer used.
func (a *app) buildVerifier(ctx context.Context) (*pipeline.Verifier, func() error, error) {
	extractor, closeFn, err := gemini.NewExtractor(ctx, a.cfg.Gemini, a.logger)
	if err != nil {
		return nil, nil, err
	}
	v, err := pipeline.NewVerifier(
		extractor,
		pipeline.ConfigFrom(a.cfg.Verify, gemini.IsEntityNotFound),
		rules.RecipientProfileFrom(a.cfg.Recipient),
		a.logger,
	)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	a.logger.Info("verifier.ready",
		"transport", a.cfg.Gemini.Transport,
		"model", a.cfg.Gemini.Model,
		"max_attempts", a.cfg.Verify.MaxAttempts,
		"lenient", a.cfg.Verify.Lenient,
	)
	return v, closeFn, nil
}
