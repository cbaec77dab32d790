package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/benchmarks/internal/config"
	"github.com/born-ml/benchmarks/internal/telemetry"
)

// app is the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	closer  io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "born-bench",
		Short: "Benchmark Born models against a reference suite log",
		Long: `born-bench replays a reference benchmark suite log on the native Born
engine: it loads each model, times predict and fit calls, and stores the
results in SQLite or PostgreSQL for comparison with the reference run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, a.closer = telemetry.InitLogger(telemetry.Options{
				Level:   cfg.Log.Level,
				Format:  cfg.Log.Format,
				LogFile: cfg.Log.File,
				Output:  cmd.ErrOrStderr(),
			})
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./born-bench.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.String("store-type", "sqlite", "datastore: sqlite or postgres")
	flags.String("store-dsn", "", "SQLite path or PostgreSQL DSN")
	flags.String("suite-url", "", "suite log URL")
	flags.String("suite-file", "", "read the suite log from a file instead of over HTTP")
	a.bind(flags, map[string]string{
		"suite_url":  "suite-url",
		"suite_file": "suite-file",
		"log.level":  "log-level",
		"log.format": "log-format",
		"log.file":   "log-file",
		"store.type": "store-type",
		"store.dsn":  "store-dsn",
	})

	cmd.AddCommand(
		newRunCmd(a),
		newOrderCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// bind maps config keys to flags so flags override file and environment values.
func (a *app) bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err) // flag names are compile-time constants
		}
	}
}
