package quotes

import (
	"context"
	"testing"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	marginValue string
	quotes      []*models.Quote
}

func (r *fakeRepo) GetSetting(_ context.Context, key string) (*models.Setting, error) {
	if r.marginValue == "" {
		return nil, apperr.NotFound("setting", key)
	}
	return &models.Setting{Key: key, Value: r.marginValue}, nil
}

func (r *fakeRepo) InsertQuote(_ context.Context, q *models.Quote) (int64, error) {
	r.quotes = append(r.quotes, q)
	return int64(len(r.quotes)), nil
}

type fakeCarrier struct {
	calls int
	rates []models.RateQuote
	err   error
}

func (c *fakeCarrier) GetQuotes(context.Context, models.QuoteRequest) ([]models.RateQuote, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]models.RateQuote, len(c.rates))
	copy(out, c.rates)
	return out, nil
}

func (c *fakeCarrier) PurchaseLabel(context.Context, carrier.PurchaseRequest) (carrier.PurchaseResult, error) {
	return carrier.PurchaseResult{}, nil
}
func (c *fakeCarrier) RefreshShipment(context.Context, string) (carrier.PurchaseResult, error) {
	return carrier.PurchaseResult{}, nil
}
func (c *fakeCarrier) CancelLabel(context.Context, string, string) (carrier.CancelResult, error) {
	return carrier.CancelResult{}, nil
}
func (c *fakeCarrier) TrackLabel(context.Context, string, string) (carrier.TrackingResult, error) {
	return carrier.TrackingResult{}, nil
}

type memCache struct {
	m map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.m[key] = value
	return nil
}

func quoteReq() models.QuoteRequest {
	return models.QuoteRequest{
		OriginZip: "03100",
		DestZip:   "64000",
		Parcel:    models.Parcel{WeightKg: decimal.NewFromInt(1)},
	}
}

func TestGetQuotes_AppliesMargin(t *testing.T) {
	repo := &fakeRepo{marginValue: "15"}
	fc := &fakeCarrier{rates: []models.RateQuote{
		{ID: "r1", Provider: "Estafeta", TotalPricing: decimal.RequireFromString("100.00"), Currency: "MXN"},
	}}
	svc := New(repo, fc, nil, 0)

	rates, err := svc.GetQuotes(context.Background(), 1, quoteReq())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.True(t, rates[0].TotalPricing.Equal(decimal.RequireFromString("115.00")))

	// Quote row was stored.
	require.Len(t, repo.quotes, 1)
	require.Equal(t, int64(1), repo.quotes[0].UserID)
}

func TestGetQuotes_DefaultMarginWhenUnset(t *testing.T) {
	fc := &fakeCarrier{rates: []models.RateQuote{{TotalPricing: decimal.NewFromInt(200)}}}
	svc := New(&fakeRepo{}, fc, nil, 0)

	rates, err := svc.GetQuotes(context.Background(), 1, quoteReq())
	require.NoError(t, err)
	require.True(t, rates[0].TotalPricing.Equal(decimal.NewFromInt(230)))
}

func TestGetQuotes_DefaultMarginWhenInvalid(t *testing.T) {
	for _, bad := range []string{"abc", "-5", "150"} {
		fc := &fakeCarrier{rates: []models.RateQuote{{TotalPricing: decimal.NewFromInt(100)}}}
		svc := New(&fakeRepo{marginValue: bad}, fc, nil, 0)

		rates, err := svc.GetQuotes(context.Background(), 1, quoteReq())
		require.NoError(t, err)
		require.True(t, rates[0].TotalPricing.Equal(decimal.NewFromInt(115)), "margin %q", bad)
	}
}

func TestGetQuotes_CacheHitSkipsCarrier(t *testing.T) {
	repo := &fakeRepo{marginValue: "15"}
	fc := &fakeCarrier{rates: []models.RateQuote{{ID: "r1", TotalPricing: decimal.NewFromInt(100)}}}
	svc := New(repo, fc, &memCache{m: map[string][]byte{}}, time.Minute)

	_, err := svc.GetQuotes(context.Background(), 1, quoteReq())
	require.NoError(t, err)
	rates, err := svc.GetQuotes(context.Background(), 1, quoteReq())
	require.NoError(t, err)

	require.Equal(t, 1, fc.calls)
	require.Equal(t, "r1", rates[0].ID)
	// Only the first request persisted a quote row.
	require.Len(t, repo.quotes, 1)
}

func TestGetQuotes_Validation(t *testing.T) {
	svc := New(&fakeRepo{}, &fakeCarrier{}, nil, 0)

	req := quoteReq()
	req.OriginZip = ""
	_, err := svc.GetQuotes(context.Background(), 1, req)
	require.True(t, apperr.IsValidation(err))

	req = quoteReq()
	req.Parcel.WeightKg = decimal.Zero
	_, err = svc.GetQuotes(context.Background(), 1, req)
	require.True(t, apperr.IsValidation(err))
}

func TestGetQuotes_CarrierDown(t *testing.T) {
	fc := &fakeCarrier{err: context.DeadlineExceeded}
	svc := New(&fakeRepo{}, fc, nil, 0)

	_, err := svc.GetQuotes(context.Background(), 1, quoteReq())
	require.True(t, apperr.IsExternal(err))
}
