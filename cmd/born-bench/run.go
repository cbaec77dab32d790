package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/benchmarks/benchmark"
	"github.com/born-ml/benchmarks/internal/config"
	"github.com/born-ml/benchmarks/internal/metrics"
	"github.com/born-ml/benchmarks/internal/notify"
	"github.com/born-ml/benchmarks/internal/report"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a suite log and store the measured runs",
		Example: `  born-bench run --suite-url http://localhost:8080/suite/suite_log.json
  born-bench run --suite-file testdata/suite/suite_log.json --models-dir testdata/suite/models --store-dsn bench.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("models-url", "", "base URL of model topologies (default: models/ next to the suite log)")
	flags.String("models-dir", "", "read model topologies from this directory")
	flags.Int("threads", 0, "kernel worker threads (0 = all CPUs)")
	flags.Int64("seed", 1, "random input seed")
	flags.Duration("timeout", 0, "abort the run after this long (default 10m)")
	flags.String("tokenizer", "", "tiktoken encoding for token-id inputs (empty = random ids)")
	flags.String("export", "", "write the measured runs as a suite log to this file")
	flags.String("report", "", "write the comparison report as JSON to this file")
	flags.String("push-gateway", "", "Prometheus push gateway URL")
	a.bind(flags, map[string]string{
		"models_url":           "models-url",
		"models_dir":           "models-dir",
		"threads":              "threads",
		"seed":                 "seed",
		"timeout":              "timeout",
		"tokenizer":            "tokenizer",
		"export":               "export",
		"report":               "report",
		"metrics.push_gateway": "push-gateway",
	})
	return cmd
}

func (a *app) run(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	st, err := benchmark.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	res, err := benchmark.Run(ctx, a.benchmarkOptions(cfg, st, m))
	if err != nil {
		return err
	}

	rep := report.New(res.Context.ID, res.Environment, res.Runs)
	rep.Table(cmd.OutOrStdout())

	if cfg.Report != "" {
		if err := rep.SaveJSON(cfg.Report); err != nil {
			return err
		}
	}
	if cfg.Export != "" {
		if err := exportSuiteLog(cfg.Export, benchmark.ToSuiteLog(res.Runs, res.Environment, res.Versions)); err != nil {
			return err
		}
	}
	a.publish(ctx, cfg, m, rep)
	return nil
}

// benchmarkOptions maps the configuration onto a benchmark run.
func (a *app) benchmarkOptions(cfg *config.Config, st benchmark.Datastore, obs benchmark.Observer) benchmark.Options {
	return benchmark.Options{
		SuiteURL:  cfg.SuiteURL,
		SuiteFile: cfg.SuiteFile,
		ModelsURL: cfg.ModelsURL,
		ModelsDir: cfg.ModelsDir,
		Threads:   cfg.Threads,
		Seed:      cfg.Seed,
		Tokenizer: cfg.Tokenizer,
		TaskType:  cfg.TaskType,
		Store:     st,
		Observer:  obs,
		Logger:    a.logger,
	}
}

// publish sends metrics and the summary. Failures are logged; the results
// are already stored.
func (a *app) publish(ctx context.Context, cfg *config.Config, m *metrics.Metrics, rep *report.Report) {
	if cfg.Metrics.PushGateway != "" {
		if err := m.Push(ctx, cfg.Metrics.PushGateway, cfg.Metrics.Job, rep.RunID); err != nil {
			a.logger.Warn("push metrics failed", "gateway", cfg.Metrics.PushGateway, "error", err)
		}
	}
	if n := notify.NewSlack(cfg.Slack.WebhookURL, cfg.Slack.Token, cfg.Slack.Channel); n != nil {
		if err := n.Notify(ctx, rep.Summary()); err != nil {
			a.logger.Warn("slack notification failed", "error", err)
		}
	}
}

func exportSuiteLog(path string, l *benchmark.SuiteLog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export suite log: %w", err)
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("export suite log: %w", err)
	}
	return f.Close()
}
