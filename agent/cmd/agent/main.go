// Command agent runs one chilemetrics collection cycle: it fetches the
// public weather, seismic and currency APIs, maps the results to metric
// samples and pushes them to a remote-write compatible backend.
//
// It is meant to be started by an external scheduler at a fixed interval.
// The exit status reflects the cycle outcome: 0 for success or partial
// success, 1 for failure, 2 for an unusable configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
	"github.com/chilemetrics/chilemetrics/agent/internal/pipeline"
	"github.com/chilemetrics/chilemetrics/agent/internal/remote"
	"github.com/chilemetrics/chilemetrics/agent/internal/security"
	"github.com/chilemetrics/chilemetrics/agent/internal/source"
	"github.com/chilemetrics/chilemetrics/agent/internal/telemetry"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file (optional; environment only when empty)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(fs.Output(), "invalid -log-level %q\n", *logLevel)
		return exitConfig
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("chilemetrics-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return exitConfig
	}

	writer, err := remote.New(cfg.Remote)
	if err != nil {
		slog.Error("failed to build remote writer", "err", err)
		return exitConfig
	}
	clients := source.New(cfg.Sources)
	slog.Info("config loaded",
		"endpoint", writer.Endpoint(),
		"sources", len(clients),
		"cycle_timeout", cfg.CycleTimeout,
	)

	if cfg.Remote.CheckCert {
		security.Report(security.Check(ctx, writer.Endpoint(), cfg.Remote.TLS.InsecureSkipVerify))
	}

	var opts []pipeline.Option
	var rec *telemetry.Recorder
	if cfg.Telemetry.Textfile != "" {
		rec = telemetry.New()
		opts = append(opts, pipeline.WithObserver(rec))
	}

	rep := pipeline.New(cfg, clients, writer, opts...).Run(ctx)

	if rec != nil {
		if err := rec.WriteTextfile(cfg.Telemetry.Textfile); err != nil {
			slog.Warn("telemetry not written", "path", cfg.Telemetry.Textfile, "err", err)
		}
	}

	if code := rep.Outcome.ExitCode(); code != 0 {
		return exitFailure
	}
	return 0
}
