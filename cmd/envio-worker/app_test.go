package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/PaqueMex/EnvioBox/config"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/fake"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier/skydropxhttp"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/services/poller"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (r *fakeRepo) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	return []*models.Shipment{}, nil
}

type noopProducer struct{}

func (p noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

func TestDefaultWorkerFactories_SelectCarrierClient(t *testing.T) {
	f := defaultWorkerFactories()

	cfgLive := &config.Config{
		EnvioBox: config.EnvioBoxConfig{
			SkydropxBaseURL:      "https://api.skydropx.test",
			SkydropxClientID:     "id",
			SkydropxClientSecret: "secret",
		},
	}
	c1 := f.newCarrierClient(cfgLive)
	_, ok := c1.(*skydropxhttp.Client)
	require.True(t, ok)

	// Without credentials the worker stays offline.
	cfgOffline := &config.Config{
		EnvioBox: config.EnvioBoxConfig{
			SkydropxBaseURL: "https://api.skydropx.test",
		},
	}
	c2 := f.newCarrierClient(cfgOffline)
	_, ok = c2.(*fake.FakeClient)
	require.True(t, ok)
}

func TestDefaultWorkerFactories_ProducerAndRateLimiter_NonNil(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newProducer(cfg))
	require.NotNil(t, f.newRateLimiter(cfg))
}

func TestRunEnvioWorker_ContextCanceled(t *testing.T) {
	calledClose := false

	f := workerFactories{
		newStorage: func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error) {
			return &fakeRepo{}, func() { calledClose = true }, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			return noopProducer{}
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			return nil
		},
		newCarrierClient: func(cfg *config.Config) carrier.Client {
			return fake.New()
		},
	}

	cfg := &config.Config{
		Kafka:    config.KafkaConfig{ShipmentTrackedTopicName: "t"},
		EnvioBox: config.EnvioBoxConfig{WorkerPollIntervalSeconds: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunEnvioWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestRunWorkerHTTPServer_Endpoints(t *testing.T) {
	cfg := &config.Config{
		EnvioBox: config.EnvioBoxConfig{
			WorkerBatchSize:   25,
			WorkerConcurrency: 4,
		},
	}
	p := poller.New(&fakeRepo{}, fake.New(), noopProducer{}, nil, "t")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(httpAddr string) { addrCh <- httpAddr },
			poller:   p,
			cfg:      cfg,
		})
	}()
	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	resp2, err := http.Get("http://" + addr + "/config")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, float64(25), out["batchSize"])

	resp3, err := http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	trig, _ := io.ReadAll(resp3.Body)
	require.Contains(t, string(trig), "triggered")

	resp4, err := http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	defer resp4.Body.Close()
	require.Equal(t, 200, resp4.StatusCode)

	cancel()
	require.Error(t, <-errCh)
}
