package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cognicore/hansard/internal/logging"
	"github.com/cognicore/hansard/pkg/hansard/config"
	"github.com/cognicore/hansard/pkg/hansard/corpus"
	"github.com/cognicore/hansard/pkg/hansard/internalerr"
	"github.com/cognicore/hansard/pkg/hansard/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "corpus-builder:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("corpus-builder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "YAML run configuration (optional)")
		sourcePath  = fs.String("source", "", "Source database with proceedings pages")
		destPath    = fs.String("dest", "", "Destination database for extracted speeches")
		maxRows     = fs.Int("max-rows", 0, "Read at most this many pages (default: all)")
		workers     = fs.Int("workers", 0, "Pages parsed concurrently")
		rowTimeout  = fs.Duration("row-timeout", 0, "Skip a page whose parse takes longer than this")
		metricsAddr = fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		debug       = fs.Bool("debug", false, "Log skipped pages and use development logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", internalerr.ErrInvalidArgument, fs.Args())
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags given on the command line override the file.
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.Path = *sourcePath
		case "dest":
			cfg.Destination.Path = *destPath
		case "max-rows":
			if *maxRows < 1 {
				flagErr = fmt.Errorf("%w: -max-rows must be greater than 0, got %d", internalerr.ErrInvalidArgument, *maxRows)
			}
			cfg.Build.MaxRows = *maxRows
		case "workers":
			cfg.Build.Workers = *workers
		case "row-timeout":
			cfg.Build.RowTimeout = *rowTimeout
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "debug":
			cfg.Log.Debug = *debug
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	var progress corpus.Progress = corpus.NewLogProgress(logger, 1000)
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		progress = metrics.Tee{metrics.NewProgress(reg), progress}
		shutdown, err := metrics.StartServer(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(sctx)
		}()
	}

	comp, err := cfg.Load(ctx, logger, progress)
	if err != nil {
		return err
	}
	defer comp.Close()

	logger.Info("corpus builder started",
		zap.String("source", cfg.Source.Path),
		zap.String("dest", cfg.Destination.Path),
		zap.Int("max_rows", cfg.Build.MaxRows),
	)

	c, err := comp.Builder.Build(ctx, comp.Source, cfg.Build.Limit()...)
	if err != nil {
		return fmt.Errorf("build corpus: %w", err)
	}
	if err := comp.Builder.Commit(ctx, c, comp.Destination); err != nil {
		return fmt.Errorf("commit corpus: %w", err)
	}

	fmt.Fprintf(stdout, "Run %s: read %d pages, parsed %d, skipped %d, wrote %d speeches to %s\n",
		c.RunID, c.Stats.Read, c.Stats.Parsed, c.Stats.Skipped, c.Stats.Rows, cfg.Destination.Path)
	return nil
}
