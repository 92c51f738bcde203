package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskboard/internal/app"
	"github.com/fastygo/taskboard/internal/config"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
	"github.com/fastygo/taskboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(appCtx, cancel)

	if err := run(appCtx, cfg, manager, zapLogger); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg, manager, zapLogger)
	if err != nil {
		return err
	}

	application := app.New(cfg, stores, zapLogger)

	if err := application.Monitor.Start(); err != nil {
		return err
	}
	manager.Register("monitor", func(ctx context.Context) error {
		application.Monitor.Stop(ctx)
		return nil
	})

	server := &fasthttp.Server{
		Handler:               application.Handler,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		Concurrency:           cfg.HTTP.MaxConn,
		Name:                  cfg.AppName,
		CloseOnShutdown:       true,
		NoDefaultServerHeader: true,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.StoreDriver),
		)
		return server.ListenAndServe(cfg.Address())
	})
	g.Go(func() error {
		<-gctx.Done()
		return server.ShutdownWithContext(context.Background())
	})

	return g.Wait()
}
