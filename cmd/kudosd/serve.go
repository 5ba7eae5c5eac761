package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blockberries/kudos/app"
	"github.com/blockberries/kudos/archive"
	"github.com/blockberries/kudos/config"
	kudosgrpc "github.com/blockberries/kudos/grpc"
	"github.com/blockberries/kudos/logging"
	"github.com/blockberries/kudos/metrics"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the application over gRPC",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.Info().Str("config", cfg.String()).Msg("kudosd starting")
	deadlock.Opts.Disable = !cfg.LockDiagnostics

	if cfg.GenesisFile != "" {
		if _, err := readGenesis(cfg.GenesisFile); err != nil {
			return err
		}
		log.Info().Str("file", cfg.GenesisFile).Msg("genesis app state valid")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sinks app.Sinks

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sinks = append(sinks, metrics.NewCollector(reg))

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(log, cfg.MetricsAddr, reg)
		metricsSrv.Start()
	}

	db, err := archive.Open(cfg)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if db != nil {
		if err := archive.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		sinks = append(sinks, archive.NewSink(db, log))
		log.Info().Msg("archive enabled")
	} else {
		log.Info().Msg("DATABASE_URL not provided, archive disabled")
	}

	application := app.New(
		app.WithLogger(log),
		app.WithSink(sinks),
		app.WithSnapshotChunkSize(cfg.SnapshotChunkSize),
	)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	gs := kudosgrpc.NewGRPCServer(application, kudosgrpc.WithLogger(log)).NewServer()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", lis.Addr().String()).Msg("grpc server started")
		errCh <- gs.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errCh:
		log.Error().Err(err).Msg("grpc server stopped")
	}

	stop(log, gs.GracefulStop, gs.Stop)
	if metricsSrv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if serr := metricsSrv.Shutdown(sctx); serr != nil {
			log.Warn().Err(serr).Msg("metrics shutdown")
		}
	}
	return err
}

// stop runs graceful and falls back to force after shutdownTimeout.
func stop(log zerolog.Logger, graceful, force func()) {
	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Warn().Msg("graceful stop timed out")
		force()
	}
}
