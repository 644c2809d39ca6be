package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaqueMex/EnvioBox/config"
	"github.com/PaqueMex/EnvioBox/internal/api/httpapi"
	"github.com/PaqueMex/EnvioBox/internal/broker/kafka"
	"github.com/PaqueMex/EnvioBox/internal/cache/rediscache"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/fake"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/skydropxhttp"
	"github.com/PaqueMex/EnvioBox/internal/services/quotes"
	"github.com/PaqueMex/EnvioBox/internal/services/shipments"
	"github.com/PaqueMex/EnvioBox/internal/services/wallet"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
)

type envioAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     envioAPIOpts
	api      *httpapi.API
	svc      *shipments.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapEnvioAPI() *envioAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	httpAddr := cfg.EnvioBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.EnvioBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "envio-api"
	}
	topic := cfg.Kafka.ShipmentTrackedTopicName
	if topic == "" {
		topic = "shipment.tracked"
	}
	quoteTTL := time.Duration(cfg.EnvioBox.QuoteCacheTTLSeconds) * time.Second
	if quoteTTL <= 0 {
		quoteTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	gw := newCarrierClient(cfg)

	quotesSvc := quotes.New(st, gw, rc, quoteTTL)
	walletSvc := wallet.New(st)
	shipmentsSvc := shipments.New(st, walletSvc, quotesSvc, gw)
	api := httpapi.New(quotesSvc, shipmentsSvc, walletSvc, st, st)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &envioAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: envioAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		svc:      shipmentsSvc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func newCarrierClient(cfg *config.Config) carrier.Client {
	if cfg.EnvioBox.SkydropxClientID != "" && cfg.EnvioBox.SkydropxClientSecret != "" {
		return skydropxhttp.New(cfg.EnvioBox.SkydropxBaseURL, cfg.EnvioBox.SkydropxClientID, cfg.EnvioBox.SkydropxClientSecret)
	}
	return fake.New()
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgbroker.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgbroker.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *envioAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *envioAPIApp) Run() error {
	return runEnvioAPI(a.ctx, a.opts, a.api, a.svc, a.consumer)
}
