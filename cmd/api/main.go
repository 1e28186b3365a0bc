package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/webshop-ops/freefinance-bridge/internal/audit"
	"github.com/webshop-ops/freefinance-bridge/internal/config"
	"github.com/webshop-ops/freefinance-bridge/internal/events"
	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	"github.com/webshop-ops/freefinance-bridge/internal/httpx"
	kafkax "github.com/webshop-ops/freefinance-bridge/internal/kafka"
	"github.com/webshop-ops/freefinance-bridge/internal/logger"
	"github.com/webshop-ops/freefinance-bridge/internal/postgres"
	"github.com/webshop-ops/freefinance-bridge/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		zlog.Fatal().Err(err).Msg("logger setup")
	}
	log := logger.WithComponent("api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	auditRepo := &audit.Repo{DB: db}
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("audit schema")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	tokens := &redisx.TokenStore{RDB: rdb}

	ff := freefinance.NewClient(cfg.FreeFinanceURL, cfg.FreeFinanceClientID,
		cfg.FreeFinanceClientSecret, tokens, logger.WithComponent("freefinance"))

	prod := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicInvoiceRequested, 1024)
	prod.Start(ctx)

	router := httpx.NewRouter()
	h := &httpx.Handler{
		Auth:         ff,
		Producer:     prod,
		Audit:        auditRepo,
		Service:      cfg.ServiceName + "-api",
		StateSecret:  cfg.StateSecret,
		LenientState: cfg.LenientState,
		Log:          logger.WithComponent("httpx"),
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // closes the inbox, flushes the remainder
	prod.WaitClosed()
}
