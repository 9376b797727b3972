package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shopBackend/internal/auth"
	"shopBackend/internal/config"
	"shopBackend/internal/db"
	grpcserver "shopBackend/internal/grpc"
	"shopBackend/internal/httpapi"
	"shopBackend/internal/logger"
	"shopBackend/internal/observability"
	"shopBackend/internal/service"
	"shopBackend/repository"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the most recent migration and exit")
	dev := flag.Bool("dev", false, "use development defaults (JWT_SECRET not required)")
	flag.Parse()

	if err := run(*rollback, *dev); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(rollback, dev bool) error {
	// Load configuration
	load := config.Load
	if dev {
		load = config.LoadWithDefaults
	}
	cfg, err := load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode, logger.Options{HashSalt: cfg.Log.HashSalt})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("configuration loaded", "config", cfg.String())

	// Open DB
	dialect, err := db.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	d, err := db.OpenDialect(dialect, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn("close db", "error", err)
		}
	}()

	if rollback {
		if err := db.RollbackLast(d); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		versions, _ := db.AppliedVersions(d)
		log.Info("rolled back last migration", "applied", versions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, log, cfg.Tracing)

	users := repository.NewUserRepository(d)
	items := repository.NewItemRepository(d)
	orders := repository.NewOrderRepository(d)

	accounts := service.NewAccountService(users, auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), log)
	catalog := service.NewCatalogService(items, log)
	orderSvc := service.NewOrderService(d, users, items, orders, log)

	if created, err := accounts.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	} else if created {
		log.Info("seeded admin account", "username", cfg.Auth.AdminUsername)
	}

	engine := httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Log:            log.With("component", "http"),
		AuthMiddleware: httpapi.NewAuthMiddleware(cfg.Auth.JWTSecret, users, log),
		AuthHandler:    httpapi.NewAuthHandler(accounts, log),
		ItemHandler:    httpapi.NewItemHandler(catalog, log),
		OrderHandler:   httpapi.NewOrderHandler(orderSvc, log),
	})
	httpSrv := httpapi.NewServer(cfg.HTTP.Address, engine)

	shutdownGRPC := func(context.Context) error { return nil }
	if cfg.GRPC.Address != "" {
		shutdownGRPC, err = grpcserver.StartGRPC(cfg, &grpcserver.Server{
			Orders:  orderSvc,
			Catalog: catalog,
			Users:   users,
			Log:     log.With("component", "grpc"),
		}, log)
		if err != nil {
			return fmt.Errorf("start grpc: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "address", cfg.HTTP.Address)
		return httpSrv.Run()
	})
	g.Go(func() error {
		// Wait for signal
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		if err := shutdownGRPC(sctx); err != nil {
			log.Warn("grpc shutdown", "error", err)
		}
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
		return nil
	})
	return g.Wait()
}
