package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/node"
	"go.uber.org/zap"
)

// runServer starts the server and blocks until a signal stops it and every
// accepted connection has finished.
func runServer(cfg *config.Config) error {
	s := node.NewServer(cfg)
	if err := s.Start(); err != nil {
		return err
	}
	log.Logger.Info("server started", zap.String("build", RedisBuildIdRaw()), zap.Int("shards", cfg.Shards))

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.MetricsHandler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Logger.Info("metrics listening on", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signals)
	go func() {
		sig, ok := <-signals
		if !ok {
			return
		}
		log.Logger.Info("received signal, stopping", zap.String("signal", sig.String()))
		if err := s.Stop(); err != nil {
			log.Logger.Error("stop error", zap.Error(err))
		}
	}()

	err := s.Serve()

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
	log.Logger.Info("server stopped")
	return err
}
