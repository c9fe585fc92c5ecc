package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/api"
	"github.com/BaSui01/supportflow/internal/metrics"
	"github.com/BaSui01/supportflow/workflow"
)

// metricsNamespace Prometheus 指标命名空间
const metricsNamespace = "supportflow"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "supportflow",
		Short:         "Self-correcting retrieval-augmented customer support",
		Long:          "SupportFlow retrieves support material, grades it, drafts an answer and validates that the answer is grounded before returning it.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "Path to config file (YAML)")

	root.AddCommand(newServeCmd(), newAskCmd(), newVersionCmd(), newHealthCmd())
	return root
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := initLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("starting SupportFlow",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			app, err := newApp(cmd.Context(), cfg, logger, metrics.NewCollector(metricsNamespace, logger))
			if err != nil {
				logger.Error("failed to assemble application", zap.Error(err))
				return err
			}

			if err := NewServer(app).Run(cmd.Context()); err != nil {
				logger.Error("server stopped with error", zap.Error(err))
				return err
			}
			logger.Info("SupportFlow stopped")
			return nil
		},
	}
}

// =============================================================================
// 💬 ask 命令
// =============================================================================

type askOptions struct {
	maxRetries int
	topK       int
	asJSON     bool
	trace      bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			// 标准输出只留给答案
			cfg.Log.OutputPaths = []string{"stderr"}
			logger, err := initLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			app, err := newApp(cmd.Context(), cfg, logger, metrics.NewCollector(metricsNamespace, logger))
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(context.Background()) }()

			req := workflow.RunRequest{
				Question:   strings.Join(args, " "),
				MaxRetries: opts.maxRetries,
				TopK:       opts.topK,
			}
			res, err := app.service.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, opts)
		},
	}
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 0, "Maximum regeneration attempts (0 uses the configured default)")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "Passages to retrieve (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Include the step trail")
	return cmd
}

func printResult(w io.Writer, res *workflow.Result, opts askOptions) error {
	resp := api.NewAskResponse(res, opts.trace || opts.asJSON)
	if opts.asJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintln(w, resp.Answer)
	fmt.Fprintf(w, "\nstatus: %s  retries: %d/%d  run: %s\n", resp.Status, resp.RetryCount, resp.MaxRetries, resp.RunID)
	if resp.Confidence != nil {
		fmt.Fprintf(w, "confidence: %.2f\n", *resp.Confidence)
	}
	for _, step := range resp.Trace {
		fmt.Fprintf(w, "  %-18s %-14s %dms\n", step.Node, step.Outcome, step.DurationMS)
	}
	return nil
}

// =============================================================================
// 🏥 health 命令
// =============================================================================

func newHealthCmd() *cobra.Command {
	var (
		addr  string
		ready bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/health"
			if ready {
				path = "/ready"
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+path, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return errors.New("health check failed: status " + resp.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Server address")
	cmd.Flags().BoolVar(&ready, "ready", false, "Run readiness checks instead of liveness")
	return cmd
}

// =============================================================================
// 📋 version 命令
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SupportFlow %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}
