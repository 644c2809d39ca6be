package poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/broker/messages"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

type fakeCarrier struct {
	res carrier.TrackingResult
	err error
}

func (c fakeCarrier) GetQuotes(context.Context, models.QuoteRequest) ([]models.RateQuote, error) {
	return nil, nil
}
func (c fakeCarrier) PurchaseLabel(context.Context, carrier.PurchaseRequest) (carrier.PurchaseResult, error) {
	return carrier.PurchaseResult{}, nil
}
func (c fakeCarrier) RefreshShipment(context.Context, string) (carrier.PurchaseResult, error) {
	return carrier.PurchaseResult{}, nil
}
func (c fakeCarrier) CancelLabel(context.Context, string, string) (carrier.CancelResult, error) {
	return carrier.CancelResult{}, nil
}
func (c fakeCarrier) TrackLabel(ctx context.Context, trackingNumber, carrierHint string) (carrier.TrackingResult, error) {
	return c.res, c.err
}

func trackedShipment(id int64, failCount int32) *models.Shipment {
	tn := "MX0000000042"
	return &models.Shipment{ID: id, Carrier: "Estafeta", TrackingNumber: &tn, CheckFailCount: failCount}
}

func TestPoller_processOne_okPublishes(t *testing.T) {
	now := time.Now().UTC()
	fp := &fakeProducer{}
	desc := "en ruta"
	p := New(nil, fakeCarrier{
		res: carrier.TrackingResult{
			Status: models.TrackingStatusInTransit,
			Events: []*models.TrackingEvent{
				{Status: models.TrackingStatusInTransit, Description: &desc, EventDate: now},
			},
		},
	}, fp, fakeRL{allowed: true}, "shipment.tracked")

	require.NoError(t, p.processOne(context.Background(), trackedShipment(42, 0)))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "shipment.tracked", fp.topic)
	require.Equal(t, []byte("42"), fp.key)

	var msg messages.ShipmentTracked
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.Equal(t, int64(42), msg.ShipmentID)
	require.Equal(t, models.TrackingStatusInTransit, msg.Status)
	require.Len(t, msg.Events, 1)
	require.Nil(t, msg.Error)
	require.True(t, msg.NextCheckAt.After(now))
}

func TestPoller_processOne_errorBackoff(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{err: errors.New("boom")}, fp, nil, "shipment.tracked")

	before := time.Now().UTC()
	require.NoError(t, p.processOne(context.Background(), trackedShipment(1, 2)))
	require.Equal(t, 1, fp.calls)

	var msg messages.ShipmentTracked
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.NotNil(t, msg.Error)
	// Third consecutive failure lands on the 30 minute step.
	require.True(t, msg.NextCheckAt.After(before.Add(29*time.Minute)))
	require.True(t, msg.NextCheckAt.Before(before.Add(31*time.Minute)))
}

func TestPoller_processOne_missingTrackingNumber(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{}, fp, nil, "shipment.tracked")
	err := p.processOne(context.Background(), &models.Shipment{ID: 7})
	require.Error(t, err)
	require.Zero(t, fp.calls)
}

func TestPoller_WithSettings(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{}, fp, nil, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Second, 13)
	require.Equal(t, 5*time.Second, p.pollInterval)
	require.Equal(t, 7, p.batchSize)
	require.Equal(t, 9, p.concurrency)
	require.Equal(t, 11*time.Second, p.lease)
	require.Equal(t, int64(13), p.rateLimitPerMinute)
}
