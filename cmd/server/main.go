package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/cache"
	"github.com/oggyb/catmatch/internal/config"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/logger"
	"github.com/oggyb/catmatch/internal/server"
	"github.com/oggyb/catmatch/internal/service/chat"
	"github.com/oggyb/catmatch/internal/service/explore"
	"github.com/oggyb/catmatch/internal/service/matches"
	"github.com/oggyb/catmatch/internal/service/profile"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return err
	}

	if cfg.App.ENV == "development" {
		n, err := db.SeedSampleData(database, false)
		if err != nil {
			log.Error("failed to seed sample cats", "err", err)
		} else {
			log.Info("sample cats seeded", "count", n)
		}
	}

	appCtx := app.New(cfg, database, redisCache, log, nil)

	chatReg := chat.NewRegistrar(appCtx)
	httpServer := server.NewHTTPServer(appCtx, auth.NewJWTVerifier(cfg),
		explore.NewRegistrar(appCtx),
		matches.NewRegistrar(appCtx),
		chatReg,
		profile.NewRegistrar(appCtx),
	)

	healthReg := server.NewHealthRegistrar()
	grpcServer := server.NewGRPCServer(healthReg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.ServeGRPC(gctx, cfg, grpcServer)
	})

	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthReg.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		// pending bot replies finish on their own timeout
		chatReg.Service().Bot().Wait()
		return err
	})

	return g.Wait()
}
