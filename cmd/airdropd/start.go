package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blockberries/airdrop/app"
	"github.com/blockberries/airdrop/config"
	airdropgrpc "github.com/blockberries/airdrop/grpc"
	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/metrics"
	"github.com/blockberries/airdrop/store"
)

const shutdownTimeout = 5 * time.Second

func newStartCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the application over gRPC until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.String("grpc-addr", "127.0.0.1:26658", "gRPC listen address")
	f.String("metrics-addr", "127.0.0.1:26660", "Prometheus listen address, empty to disable")
	f.Uint64("max-amount", 0, "Refuse larger airdrop requests at mempool admission (0 = genesis limit only)")
	f.Bool("db-sync", true, "Fsync every commit")
	_ = v.BindPFlag(config.KeyGRPCAddr, f.Lookup("grpc-addr"))
	_ = v.BindPFlag(config.KeyMetricsAddr, f.Lookup("metrics-addr"))
	_ = v.BindPFlag(config.KeyMaxAmount, f.Lookup("max-amount"))
	_ = v.BindPFlag(config.KeyDBSync, f.Lookup("db-sync"))
	return cmd
}

// run serves until ctx is done or a listener fails.
func run(ctx context.Context, cfg config.Config) error {
	if _, err := logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	log := logging.Named("airdropd")

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.DataDir(), cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := app.New(
		app.WithStore(st),
		app.WithMetrics(metrics.New(reg)),
		app.WithMempoolMaxAmount(cfg.MaxAmount),
	)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	gs := airdropgrpc.NewGRPCServer(a).NewServer()

	errc := make(chan error, 2)
	go func() {
		errc <- gs.Serve(lis)
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: shutdownTimeout,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	log.Infow("airdropd started",
		"home", cfg.Home,
		"grpc", lis.Addr().String(),
		"metrics", cfg.MetricsAddr,
		"max_amount", cfg.MaxAmount,
	)

	select {
	case <-ctx.Done():
		log.Infow("shutting down")
	case err = <-errc:
		log.Errorw("server failed", "err", err)
	}

	gs.GracefulStop()
	if metricsSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := metricsSrv.Shutdown(sctx); serr != nil {
			log.Warnw("metrics shutdown", "err", serr)
		}
	}
	return err
}
