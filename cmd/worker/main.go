package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/webshop-ops/freefinance-bridge/internal/audit"
	"github.com/webshop-ops/freefinance-bridge/internal/config"
	"github.com/webshop-ops/freefinance-bridge/internal/events"
	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	"github.com/webshop-ops/freefinance-bridge/internal/invoicing"
	kafkax "github.com/webshop-ops/freefinance-bridge/internal/kafka"
	"github.com/webshop-ops/freefinance-bridge/internal/logger"
	"github.com/webshop-ops/freefinance-bridge/internal/magento"
	"github.com/webshop-ops/freefinance-bridge/internal/postgres"
	"github.com/webshop-ops/freefinance-bridge/internal/redisx"
	"github.com/webshop-ops/freefinance-bridge/internal/region"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		zlog.Fatal().Err(err).Msg("logger setup")
	}
	log := logger.WithComponent("worker")

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
	mag := magento.NewClient(cfg.MagentoURL, cfg.MagentoToken,
		cfg.FetchAttempts, cfg.FetchInterval, logger.WithComponent("magento"))

	var resolver region.Resolver = region.NopResolver{}
	if cfg.RegionResolution == "fuzzy" {
		resolver = &region.FuzzyResolver{Regions: ff}
	}

	svc := &invoicing.Service{
		Orders:     mag,
		Accounting: ff,
		Reconciler: &invoicing.Reconciler{API: ff, Log: logger.WithComponent("reconciler")},
		Mapper: &invoicing.Mapper{
			PaymentTerms: cfg.PaymentTerms,
			FallbackTerm: cfg.FallbackPaymentTerm,
		},
		Regions:     resolver,
		Dedup:       &redisx.Dedup{RDB: rdb},
		Audit:       auditRepo,
		ServiceName: cfg.ServiceName + "-worker",
		Log:         logger.WithComponent("invoicing"),
	}

	group := getenv("WORKER_GROUP", "invoice-worker")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicInvoiceRequested, workers)

	go func() {
		log.Info().Str("group", group).Str("topic", events.TopicInvoiceRequested).
			Int("workers", workers).Msg("consumer started")
		if err := cons.Start(ctx, svc.HandleInvoiceRequested); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
