package httpapi

import (
	"time"

	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
)

type parcelDTO struct {
	WeightKg decimal.Decimal `json:"weightKg"`
	LengthCm decimal.Decimal `json:"lengthCm"`
	WidthCm  decimal.Decimal `json:"widthCm"`
	HeightCm decimal.Decimal `json:"heightCm"`
}

func (p parcelDTO) model() models.Parcel {
	return models.Parcel{WeightKg: p.WeightKg, LengthCm: p.LengthCm, WidthCm: p.WidthCm, HeightCm: p.HeightCm}
}

type addressDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Zip     string `json:"zip"`
	Street  string `json:"street"`
	Number  string `json:"number"`
	Colonia string `json:"colonia"`
	City    string `json:"city"`
	State   string `json:"state"`
	Address string `json:"address"`
}

func (a addressDTO) model() models.Address {
	return models.Address{
		Name: a.Name, Phone: a.Phone, Email: a.Email, Zip: a.Zip,
		Street: a.Street, Number: a.Number, Colonia: a.Colonia,
		City: a.City, State: a.State, Address: a.Address,
	}
}

type shipmentDTO struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Carrier         string          `json:"carrier"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	SenderName      string          `json:"senderName"`
	SenderZip       string          `json:"senderZip"`
	SenderAddress   string          `json:"senderAddress"`
	ReceiverName    string          `json:"receiverName"`
	ReceiverZip     string          `json:"receiverZip"`
	ReceiverAddress string          `json:"receiverAddress"`
	WeightKg        decimal.Decimal `json:"weightKg"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty"`
	LabelURL        *string         `json:"labelUrl,omitempty"`
	TrackingStatus  string          `json:"trackingStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func toShipmentDTO(sh *models.Shipment) shipmentDTO {
	return shipmentDTO{
		ID:              sh.ID,
		Status:          sh.Status,
		Carrier:         sh.Carrier,
		Amount:          sh.Amount,
		Currency:        sh.Currency,
		SenderName:      sh.SenderName,
		SenderZip:       sh.SenderZip,
		SenderAddress:   sh.SenderAddress,
		ReceiverName:    sh.ReceiverName,
		ReceiverZip:     sh.ReceiverZip,
		ReceiverAddress: sh.ReceiverAddress,
		WeightKg:        sh.WeightKg,
		TrackingNumber:  sh.TrackingNumber,
		LabelURL:        sh.LabelURL,
		TrackingStatus:  sh.TrackingStatus,
		CreatedAt:       sh.CreatedAt,
	}
}

func toShipmentDTOs(shs []*models.Shipment) []shipmentDTO {
	out := make([]shipmentDTO, 0, len(shs))
	for _, sh := range shs {
		out = append(out, toShipmentDTO(sh))
	}
	return out
}

type transactionDTO struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	ReferenceCode string          `json:"referenceCode"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toTransactionDTO(t *models.Transaction) transactionDTO {
	return transactionDTO{
		ID:            t.ID,
		Type:          t.Type,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Currency:      t.Currency,
		Description:   t.Description,
		ReferenceCode: t.ReferenceCode,
		CreatedAt:     t.CreatedAt,
	}
}

type trackingEventDTO struct {
	Status      string    `json:"status"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	EventDate   time.Time `json:"eventDate"`
}

func toTrackingEventDTOs(evs []*models.TrackingEvent) []trackingEventDTO {
	out := make([]trackingEventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, trackingEventDTO{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			EventDate:   e.EventDate,
		})
	}
	return out
}

type rechargeDTO struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	VoucherRef  *string         `json:"voucherRef,omitempty"`
	Status      string          `json:"status"`
	AdminNotes  *string         `json:"adminNotes,omitempty"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toRechargeDTO(r *models.RechargeRequest) rechargeDTO {
	return rechargeDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Method:      r.Method,
		VoucherRef:  r.VoucherRef,
		Status:      r.Status,
		AdminNotes:  r.AdminNotes,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
	}
}
