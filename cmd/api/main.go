package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	analyticsrepo "storefront/internal/repository/analytics"
	"storefront/internal/repository/cartstate"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	analyticssvc "storefront/internal/service/analytics"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/service/payment"
	productsvc "storefront/internal/service/product"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{Service: "api", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("api stopped with error", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbpool.Close()

	cartStore, closeStore, err := cartstate.Open(cfg, dbpool, logger)
	if err != nil {
		return fmt.Errorf("open cart store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close cart store", zap.Error(err))
		}
	}()
	logger.Info("cart store ready", zap.String("backend", cfg.CartStore))

	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	analyticsRepo := analyticsrepo.NewPostgres(dbpool, logger)

	productService := productsvc.New(productRepo)
	cartService := cartsvc.New(cartStore, productRepo, cartsvc.Options{
		IdleTTL: cfg.CartIdleTTL,
		Logger:  logger,
	})
	orderService := ordersvc.New(orderRepo, productRepo, logger)
	checkoutService := checkoutsvc.New(cartService, orderService, payment.NewDemoProcessor(), logger)
	analyticsService := analyticssvc.New(analyticsRepo, orderService, logger)
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set; admin api disabled")
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		DB:             dbpool,
		Products:       productService,
		Catalog:        productService,
		Carts:          cartService,
		Checkout:       checkoutService,
		Orders:         orderService,
		Analytics:      analyticsService,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AdminToken:     cfg.AdminToken,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cartService.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
