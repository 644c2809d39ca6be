package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/cache"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	InsertQuote(ctx context.Context, q *models.Quote) (int64, error)
}

type Service struct {
	repo    Repository
	carrier carrier.Client
	cache   cache.BytesCache
	rateTTL time.Duration
}

func New(repo Repository, c carrier.Client, bc cache.BytesCache, rateTTL time.Duration) *Service {
	return &Service{repo: repo, carrier: c, cache: bc, rateTTL: rateTTL}
}

// GetQuotes returns margined rates for the request, serving from cache when a
// recent identical request exists. The stored quote row is best effort.
func (s *Service) GetQuotes(ctx context.Context, userID int64, req models.QuoteRequest) ([]models.RateQuote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}

	key := rateKey(req)
	if s.cache != nil && s.rateTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var rates []models.RateQuote
			if json.Unmarshal(b, &rates) == nil {
				return rates, nil
			}
		}
	}

	rates, err := s.FreshRates(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.rateTTL > 0 {
		if b, err := json.Marshal(rates); err == nil {
			_ = s.cache.Set(ctx, key, b, s.rateTTL)
		}
	}

	if _, err := s.repo.InsertQuote(ctx, &models.Quote{
		UserID:    userID,
		OriginZip: req.OriginZip,
		DestZip:   req.DestZip,
		WeightKg:  req.Parcel.WeightKg,
		Rates:     rates,
	}); err != nil {
		slog.Warn("store quote", "error", err.Error())
	}

	return rates, nil
}

// FreshRates bypasses the cache. Shipment purchases use it to confirm the
// current price of a previously quoted rate.
func (s *Service) FreshRates(ctx context.Context, req models.QuoteRequest) ([]models.RateQuote, error) {
	rates, err := s.carrier.GetQuotes(ctx, req)
	if err != nil {
		return nil, apperr.External("carrier", err)
	}
	ApplyMargin(rates, s.MarginPercent(ctx))
	return rates, nil
}

// MarginPercent reads the configured markup, falling back to the default when
// the setting is absent or out of range.
func (s *Service) MarginPercent(ctx context.Context) decimal.Decimal {
	set, err := s.repo.GetSetting(ctx, models.SettingProfitMarginPercentage)
	if err != nil {
		if !apperr.IsNotFound(err) {
			slog.Warn("read margin setting", "error", err.Error())
		}
		return DefaultMarginPercent
	}
	p, err := decimal.NewFromString(set.Value)
	if err != nil || !ValidMarginPercent(p) {
		slog.Warn("invalid margin setting, using default", "value", set.Value)
		return DefaultMarginPercent
	}
	return p
}

func validateQuoteRequest(req models.QuoteRequest) error {
	if req.OriginZip == "" {
		return apperr.Validation("originZip", "es requerido")
	}
	if req.DestZip == "" {
		return apperr.Validation("destZip", "es requerido")
	}
	if !req.Parcel.WeightKg.IsPositive() {
		return apperr.Validation("parcel.weightKg", "debe ser mayor a cero")
	}
	return nil
}

func rateKey(req models.QuoteRequest) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s", req.OriginZip, req.DestZip,
		req.Parcel.WeightKg.String(), req.Parcel.LengthCm.String(),
		req.Parcel.WidthCm.String(), req.Parcel.HeightCm.String())
	return fmt.Sprintf("quote:rates:%x", h.Sum64())
}
