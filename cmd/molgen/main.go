package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sokinpui/molgen.go/internal/broadcast"
	"github.com/sokinpui/molgen.go/internal/color"
	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/generator"
	"github.com/sokinpui/molgen.go/internal/logging"
	"github.com/sokinpui/molgen.go/internal/metrics"
	"github.com/sokinpui/molgen.go/internal/pipeline"
	"github.com/sokinpui/molgen.go/internal/runner"
	"github.com/sokinpui/molgen.go/internal/sink"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		if errors.Is(err, sink.ErrAlreadyExists) {
			fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		} else {
			log.Error("run failed", zap.Error(err))
		}
		os.Exit(1)
	}
}

func run(cfg *config.Settings, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, stopping run")
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// The output path is claimed before any model resources are loaded, so
	// a pre-existing artifact aborts without wasting compute.
	var out *sink.Sink
	if cfg.IsCoordinator() {
		var err error
		out, err = sink.Open(cfg.OutputFilePath)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	gen, err := generator.New(cfg)
	if err != nil {
		return err
	}

	bc, err := broadcast.New(cfg)
	if err != nil {
		return err
	}
	defer bc.Close()

	if !cfg.IsCoordinator() {
		return runner.NewWorker(cfg.Rank, gen, bc, log).Run(ctx)
	}

	pipe := pipeline.New(pipeline.ModeFor(cfg.MolRepr), cfg.EvalWorkers, log)
	if err := runner.NewCoordinator(cfg, gen, bc, pipe, out, log).Run(ctx); err != nil {
		return err
	}
	fmt.Println(color.GreenString(fmt.Sprintf("Saved in %s.", out.Path())))
	return nil
}
