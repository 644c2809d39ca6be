package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment states. pending means the carrier accepted the purchase but has
// not assigned a tracking number yet; cancelled is terminal.
const (
	ShipmentStatusPending   = "pending"
	ShipmentStatusCreated   = "created"
	ShipmentStatusCancelled = "cancelled"
)

type Shipment struct {
	ID     int64
	UserID int64

	SenderName    string
	SenderPhone   string
	SenderZip     string
	SenderAddress string

	ReceiverName    string
	ReceiverPhone   string
	ReceiverZip     string
	ReceiverAddress string

	WeightKg decimal.Decimal
	LengthCm decimal.Decimal
	WidthCm  decimal.Decimal
	HeightCm decimal.Decimal

	Carrier  string
	Amount   decimal.Decimal
	Currency string
	Status   string

	TrackingNumber *string
	LabelURL       *string
	// Last normalized carrier tracking status; drives poll scheduling.
	TrackingStatus string

	ExternalShipmentID *string
	ExternalData       *string

	LastCheckedAt  *time.Time
	NextCheckAt    *time.Time
	CheckFailCount int32

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Address struct {
	Name    string
	Phone   string
	Email   string
	Zip     string
	Street  string
	Number  string
	Colonia string
	City    string
	State   string
	// Flat fallback when the granular street fields are absent.
	Address string
}

// Line returns the granular street line, falling back to the flat address.
func (a Address) Line() string {
	if a.Street == "" {
		return a.Address
	}
	line := a.Street
	if a.Number != "" {
		line += " " + a.Number
	}
	if a.Colonia != "" {
		line += ", " + a.Colonia
	}
	return line
}

type Parcel struct {
	WeightKg decimal.Decimal
	LengthCm decimal.Decimal
	WidthCm  decimal.Decimal
	HeightCm decimal.Decimal
}

type ShipmentCreateInput struct {
	RateID         string
	Carrier        string
	ExpectedAmount decimal.Decimal
	Currency       string
	Sender         Address
	Receiver       Address
	Parcel         Parcel
}
