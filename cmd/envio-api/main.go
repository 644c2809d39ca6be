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
	"github.com/PaqueMex/EnvioBox/internal/services/quotes"
	"github.com/PaqueMex/EnvioBox/internal/services/shipments"
	"github.com/PaqueMex/EnvioBox/internal/services/wallet"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
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
	st, err := pgbroker.New(connString)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	gw := newCarrierClient(cfg)

	quotesSvc := quotes.New(st, gw, rc, quoteTTL)
	walletSvc := wallet.New(st)
	shipmentsSvc := shipments.New(st, walletSvc, quotesSvc, gw)
	api := httpapi.New(quotesSvc, shipmentsSvc, walletSvc, st, st)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	swaggerPath := os.Getenv("swaggerPath")
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runEnvioAPI(ctx, envioAPIOpts{
		httpAddr:      httpAddr,
		swaggerPath:   swaggerPath,
		topic:         topic,
		consumerGroup: consumerGroup,
	}, api, shipmentsSvc, consumer); err != nil && err != context.Canceled {
		panic(err)
	}
}
