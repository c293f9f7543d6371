package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saker-ai/voice-relay/pkg/runtime"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to conf.yaml (defaults to RELAY_ROOT_DIR or the nearest conf.yaml)")
	shutdownTimeout := pflag.Duration("shutdown-timeout", 5*time.Second, "grace period for in-flight requests")
	pflag.Parse()

	srv, err := runtime.New(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		defer fallback.Sync()
		fallback.Fatal("failed to start relay", zap.Error(err))
	}
	logger := srv.Logger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(srv.Run)
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down", zap.String("addr", srv.Addr()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("relay stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
