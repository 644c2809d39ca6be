package main

import (
	"context"
	"fmt"
	"time"

	"github.com/PaqueMex/EnvioBox/config"
	"github.com/PaqueMex/EnvioBox/internal/broker/kafka"
	"github.com/PaqueMex/EnvioBox/internal/cache/rediscache"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/fake"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/skydropxhttp"
	"github.com/PaqueMex/EnvioBox/internal/services/poller"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
)

type workerFactories struct {
	newStorage       func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer      func(cfg *config.Config) poller.Producer
	newRateLimiter   func(cfg *config.Config) poller.RateLimiter
	newCarrierClient func(cfg *config.Config) carrier.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgbroker.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newCarrierClient: func(cfg *config.Config) carrier.Client {
			// Live Skydropx only with credentials; otherwise the
			// deterministic offline gateway.
			if cfg.EnvioBox.SkydropxClientID != "" && cfg.EnvioBox.SkydropxClientSecret != "" {
				return skydropxhttp.New(cfg.EnvioBox.SkydropxBaseURL, cfg.EnvioBox.SkydropxClientID, cfg.EnvioBox.SkydropxClientSecret)
			}
			return fake.New()
		},
	}
}

func plannerConfigFrom(cfg *config.Config) poller.PlannerConfig {
	secs := func(v int) time.Duration { return time.Duration(v) * time.Second }
	return poller.PlannerConfig{
		InTransitMinDelay: secs(cfg.EnvioBox.WorkerNextCheckInTransitMinSeconds),
		InTransitMaxDelay: secs(cfg.EnvioBox.WorkerNextCheckInTransitMaxSeconds),
		UnknownDelay:      secs(cfg.EnvioBox.WorkerNextCheckUnknownSeconds),
		Backoff1:          secs(cfg.EnvioBox.WorkerBackoff1Seconds),
		Backoff2:          secs(cfg.EnvioBox.WorkerBackoff2Seconds),
		Backoff3:          secs(cfg.EnvioBox.WorkerBackoff3Seconds),
		Backoff4:          secs(cfg.EnvioBox.WorkerBackoff4Seconds),
	}
}

func buildPoller(cfg *config.Config, f workerFactories) (*poller.Poller, func(), error) {
	topic := cfg.Kafka.ShipmentTrackedTopicName
	if topic == "" {
		topic = "shipment.tracked"
	}

	pollInterval := time.Duration(cfg.EnvioBox.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	batchSize := cfg.EnvioBox.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.EnvioBox.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	lease := time.Duration(cfg.EnvioBox.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}
	rlPerMin := int64(cfg.EnvioBox.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	carrierClient := f.newCarrierClient(cfg)

	p := poller.New(repo, carrierClient, producer, rl, topic).
		WithSettings(pollInterval, batchSize, concurrency, lease, rlPerMin).
		WithPlanner(plannerConfigFrom(cfg))

	return p, closeFn, nil
}

func RunEnvioWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	p, closeFn, err := buildPoller(cfg, f)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return p.Run(ctx)
}
