package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
)

// FakeClient is the offline gateway used when no Skydropx credentials are
// configured. Everything is deterministic in its inputs so the rest of the
// system is testable without live credentials.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

type providerProfile struct {
	name    string
	service string
	factor  string
	days    int
	pickup  bool
}

var providers = []providerProfile{
	{name: "Estafeta", service: "Terrestre", factor: "1.00", days: 4, pickup: false},
	{name: "FedEx", service: "Express Saver", factor: "1.35", days: 2, pickup: true},
	{name: "DHL", service: "Economy Select", factor: "1.20", days: 3, pickup: true},
	{name: "Redpack", service: "Ecoexpress", factor: "0.90", days: 5, pickup: false},
}

func (f *FakeClient) GetQuotes(ctx context.Context, req models.QuoteRequest) ([]models.RateQuote, error) {
	base := basePrice(req.OriginZip, req.DestZip, req.Parcel.WeightKg)

	out := make([]models.RateQuote, 0, len(providers))
	for _, p := range providers {
		factor, _ := decimal.NewFromString(p.factor)
		price := base.Mul(factor).Round(2)
		out = append(out, models.RateQuote{
			ID:                 rateID(p.name, req.OriginZip, req.DestZip, req.Parcel.WeightKg),
			Provider:           p.name,
			ServiceLevelName:   p.service,
			TotalPricing:       price,
			Currency:           "MXN",
			Days:               p.days,
			AvailableForPickup: p.pickup,
		})
	}
	return out, nil
}

func (f *FakeClient) PurchaseLabel(ctx context.Context, req carrier.PurchaseRequest) (carrier.PurchaseResult, error) {
	h := hashOf(req.RateID, req.AddressFrom.Zip, req.AddressTo.Zip)
	externalID := fmt.Sprintf("FAKE-%08X", h)

	// A slice of purchases stays in_progress without a tracking number,
	// exercising the pending path.
	if h%5 == 0 {
		return carrier.PurchaseResult{
			ExternalID:     externalID,
			WorkflowStatus: carrier.WorkflowInProgress,
			RawData:        `{"source":"fake"}`,
		}, nil
	}

	tracking := fmt.Sprintf("MX%010d", uint64(h)%1_000_000_0000)
	label := fmt.Sprintf("https://labels.fake.local/%s.pdf", tracking)
	return carrier.PurchaseResult{
		ExternalID:     externalID,
		TrackingNumber: &tracking,
		LabelURL:       &label,
		WorkflowStatus: carrier.WorkflowCompleted,
		RawData:        `{"source":"fake"}`,
	}, nil
}

// RefreshShipment always resolves: a purchase that came back in_progress
// gains its tracking number on the first refresh.
func (f *FakeClient) RefreshShipment(ctx context.Context, externalID string) (carrier.PurchaseResult, error) {
	h := hashOf(externalID)
	tracking := fmt.Sprintf("MX%010d", uint64(h)%1_000_000_0000)
	label := fmt.Sprintf("https://labels.fake.local/%s.pdf", tracking)
	return carrier.PurchaseResult{
		ExternalID:     externalID,
		TrackingNumber: &tracking,
		LabelURL:       &label,
		WorkflowStatus: carrier.WorkflowCompleted,
		RawData:        `{"source":"fake"}`,
	}, nil
}

func (f *FakeClient) CancelLabel(ctx context.Context, externalID, reason string) (carrier.CancelResult, error) {
	return carrier.CancelResult{Confirmed: true}, nil
}

func (f *FakeClient) TrackLabel(ctx context.Context, trackingNumber, carrierHint string) (carrier.TrackingResult, error) {
	now := time.Now().UTC()
	h := hashOf(trackingNumber, carrierHint)

	ladder := []string{
		models.TrackingStatusCreated,
		models.TrackingStatusPickedUp,
		models.TrackingStatusInTransit,
		models.TrackingStatusDelivered,
	}
	// 25% of tracks are already delivered, the rest sit somewhere on the ladder.
	stage := int(h % 4)

	events := make([]*models.TrackingEvent, 0, stage+1)
	for i := 0; i <= stage; i++ {
		desc := "fake carrier update"
		loc := "CDMX"
		events = append(events, &models.TrackingEvent{
			TrackingNumber: trackingNumber,
			Status:         ladder[i],
			Description:    &desc,
			Location:       &loc,
			EventDate:      now.Add(-time.Duration(stage-i) * 6 * time.Hour),
		})
	}

	return carrier.TrackingResult{
		Status: ladder[stage],
		Events: events,
	}, nil
}

// basePrice grows with weight and with the numeric distance between zips.
func basePrice(originZip, destZip string, weightKg decimal.Decimal) decimal.Decimal {
	o, _ := strconv.Atoi(originZip)
	d, _ := strconv.Atoi(destZip)
	dist := o - d
	if dist < 0 {
		dist = -dist
	}

	base := decimal.NewFromInt(80)
	base = base.Add(weightKg.Mul(decimal.NewFromInt(25)))
	base = base.Add(decimal.NewFromInt(int64(dist)).Div(decimal.NewFromInt(1000)).Round(2))
	return base
}

func rateID(parts ...any) string {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%v|", p)
	}
	return fmt.Sprintf("rate_%08x", h.Sum32())
}

func hashOf(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte("|"))
	}
	return h.Sum32()
}
