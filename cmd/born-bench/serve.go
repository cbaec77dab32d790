package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/benchmarks/benchmark"
	"github.com/born-ml/benchmarks/internal/config"
	"github.com/born-ml/benchmarks/internal/metrics"
	"github.com/born-ml/benchmarks/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var runOnce bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve suite assets, stored runs and metrics",
		Long: `serve hosts a suite directory under /suite (suite_log.json and
models/<name>/model.json), stored runs under /api/runs and Prometheus
metrics under /metrics. With --run it also replays the served suite once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), runOnce)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("dir", "testdata/suite", "directory served under /suite")
	cmd.Flags().BoolVar(&runOnce, "run", false, "replay the served suite log once after starting")
	a.bind(cmd.Flags(), map[string]string{"serve.addr": "addr", "serve.dir": "dir"})
	return cmd
}

func (a *app) serve(ctx context.Context, runOnce bool) error {
	cfg := a.cfg
	st, err := benchmark.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return err
	}

	m := metrics.New()
	srv := server.New(server.Config{SuiteDir: cfg.Serve.Dir, Metrics: m.Handler(), Runs: st})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	if runOnce {
		g.Go(func() error {
			suiteURL := cfg.SuiteURL
			if suiteURL == "" || cfg.SuiteURL == config.DefaultSuiteURL {
				suiteURL = fmt.Sprintf("http://%s/suite/suite_log.json", ln.Addr().String())
			}
			runCtx := ctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}
			opts := a.benchmarkOptions(cfg, st, m)
			opts.SuiteURL = suiteURL
			// The served suite is fetched over HTTP like any remote one.
			opts.SuiteFile, opts.ModelsDir = "", ""
			res, err := benchmark.Run(runCtx, opts)
			if err != nil {
				return err
			}
			a.logger.Info("suite replayed", "run", res.Context.ID, "records", len(res.Runs))
			return nil
		})
	}
	return g.Wait()
}
