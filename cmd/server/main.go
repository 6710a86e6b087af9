package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kodjomensah/warimarket/internal/es"
	"github.com/kodjomensah/warimarket/internal/events"
	"github.com/kodjomensah/warimarket/internal/httpserver"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/service"
	"github.com/kodjomensah/warimarket/internal/worker"
	"github.com/kodjomensah/warimarket/pkg/config"
	pkgdb "github.com/kodjomensah/warimarket/pkg/db"
	"github.com/kodjomensah/warimarket/pkg/logging"
	loggingmw "github.com/kodjomensah/warimarket/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL")).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	prod := events.NewProducer(cfg.KafkaBrokers)

	var esClient *es.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("es client: %v", err)
		}
	}

	gormRepo := &repo.GormRepo{DB: db}
	orderSvc := &service.OrderService{Repo: gormRepo, Producer: prod}
	paymentSvc := &service.PaymentService{Repo: gormRepo, Producer: prod, Orders: orderSvc}
	webhookSvc := &service.WebhookService{
		Repo:     gormRepo,
		Payments: paymentSvc,
		Orders:   orderSvc,
		Secrets:  cfg.WebhookSecrets,
	}
	authSvc := &service.AuthService{
		Repo:          gormRepo,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
	}
	catalogSvc := &service.CatalogService{Repo: gormRepo, Producer: prod, ES: esClient}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalogSvc},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc, Payments: paymentSvc},
		PaymentHandler: &httpserver.PaymentHTTP{Svc: paymentSvc, Webhooks: webhookSvc},
		JWTSecret:      cfg.JWTAccessSecret,
	})

	workerCtx, workerCancel := context.WithCancel(logging.IntoContext(context.Background(), logger))
	sweep := worker.NewExpiryWorker(paymentSvc, cfg.SweepInterval, cfg.PaymentExpiry)
	go sweep.Run(workerCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("%s listening on %s", cfg.ServiceName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Printf("%s stopped", cfg.ServiceName)
}
