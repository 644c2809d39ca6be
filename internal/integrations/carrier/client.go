package carrier

import (
	"context"

	"github.com/PaqueMex/EnvioBox/internal/models"
)

// Workflow statuses reported by the gateway for a label purchase.
const (
	WorkflowCompleted  = "completed"
	WorkflowInProgress = "in_progress"
	WorkflowCancelled  = "cancelled"
)

type PurchaseRequest struct {
	RateID      string
	AddressFrom models.Address
	AddressTo   models.Address
	Parcels     []models.Parcel
}

type PurchaseResult struct {
	ExternalID     string
	TrackingNumber *string
	LabelURL       *string
	WorkflowStatus string
	// Raw provider payload kept for passthrough/debugging.
	RawData string
}

type CancelResult struct {
	Confirmed bool
}

type TrackingResult struct {
	Status string
	Events []*models.TrackingEvent
}

// Client is the carrier gateway. Prices returned by GetQuotes are raw
// carrier prices; margin is applied by the quote service.
type Client interface {
	GetQuotes(ctx context.Context, req models.QuoteRequest) ([]models.RateQuote, error)
	PurchaseLabel(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	// RefreshShipment re-reads a purchase, picking up tracking numbers
	// assigned after an in_progress purchase.
	RefreshShipment(ctx context.Context, externalID string) (PurchaseResult, error)
	CancelLabel(ctx context.Context, externalID, reason string) (CancelResult, error)
	TrackLabel(ctx context.Context, trackingNumber, carrierHint string) (TrackingResult, error)
}
