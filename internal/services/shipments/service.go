package shipments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateShipment(ctx context.Context, sh *models.Shipment) (*models.Shipment, error)
	GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error)
	GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	ListShipmentsByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Shipment, error)
	MarkShipmentCancelled(ctx context.Context, id int64) error
	UpdateShipmentSync(ctx context.Context, id int64, status string, trackingNumber, labelURL *string) error
	InsertTrackingEvent(ctx context.Context, e *models.TrackingEvent) error
	ListTrackingEvents(ctx context.Context, shipmentID int64, limit, offset int) ([]*models.TrackingEvent, error)
	ApplyShipmentTracked(ctx context.Context, upd pgbroker.TrackingUpdate) error
}

// Wallet is the slice of the wallet service the lifecycle needs.
type Wallet interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string, refID *int64, refType *string) (*models.Transaction, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string, refID *int64, refType *string) (*models.Transaction, error)
}

// Rater produces margined rates. Purchases always re-quote: a stored quote
// is never re-margined or trusted for pricing.
type Rater interface {
	FreshRates(ctx context.Context, req models.QuoteRequest) ([]models.RateQuote, error)
}

type Service struct {
	repo    Repository
	wallet  Wallet
	rater   Rater
	carrier carrier.Client
}

func New(repo Repository, w Wallet, r Rater, c carrier.Client) *Service {
	return &Service{repo: repo, wallet: w, rater: r, carrier: c}
}

// Confirmation is the result of a successful purchase.
type Confirmation struct {
	Shipment    *models.Shipment
	Transaction *models.Transaction
	Message     string
}

// CreateShipment purchases a label and charges the wallet. The affordability
// check runs before any carrier call; the charge itself is the storage
// layer's conditional decrement, so a concurrent spend between the check and
// the debit surfaces as InsufficientFunds, never as a negative balance.
func (s *Service) CreateShipment(ctx context.Context, userID int64, in models.ShipmentCreateInput) (*Confirmation, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(in.ExpectedAmount) {
		return nil, apperr.InsufficientFunds(in.ExpectedAmount, user.Balance)
	}

	// Rate ids are ephemeral on the carrier side. Re-quote and match the
	// chosen provider; the fresh rate carries a live id and the current
	// margined price.
	rate, err := s.matchRate(ctx, in)
	if err != nil {
		return nil, err
	}
	amount := rate.TotalPricing
	if user.Balance.LessThan(amount) {
		return nil, apperr.InsufficientFunds(amount, user.Balance)
	}

	purchase, err := s.carrier.PurchaseLabel(ctx, carrier.PurchaseRequest{
		RateID:      rate.ID,
		AddressFrom: in.Sender,
		AddressTo:   in.Receiver,
		Parcels:     []models.Parcel{in.Parcel},
	})
	if err != nil {
		return nil, apperr.External("carrier", err)
	}

	sh := &models.Shipment{
		UserID:          userID,
		SenderName:      in.Sender.Name,
		SenderPhone:     in.Sender.Phone,
		SenderZip:       in.Sender.Zip,
		SenderAddress:   in.Sender.Line(),
		ReceiverName:    in.Receiver.Name,
		ReceiverPhone:   in.Receiver.Phone,
		ReceiverZip:     in.Receiver.Zip,
		ReceiverAddress: in.Receiver.Line(),
		WeightKg:        in.Parcel.WeightKg,
		LengthCm:        in.Parcel.LengthCm,
		WidthCm:         in.Parcel.WidthCm,
		HeightCm:        in.Parcel.HeightCm,
		Carrier:         rate.Provider,
		Amount:          amount,
		Currency:        rate.Currency,
		Status:          statusFromWorkflow(purchase.WorkflowStatus, purchase.TrackingNumber),
		TrackingNumber:  purchase.TrackingNumber,
		LabelURL:        purchase.LabelURL,
		TrackingStatus:  models.TrackingStatusCreated,
	}
	if purchase.ExternalID != "" {
		sh.ExternalShipmentID = &purchase.ExternalID
	}
	if purchase.RawData != "" {
		sh.ExternalData = &purchase.RawData
	}

	sh, err = s.repo.CreateShipment(ctx, sh)
	if err != nil {
		return nil, err
	}

	refType := models.ReferenceTypeShipment
	txn, err := s.wallet.Debit(ctx, userID, amount,
		fmt.Sprintf("Pago de envío %s (%s)", rate.Provider, rate.ServiceLevelName), &sh.ID, &refType)
	if err != nil {
		// The label already exists upstream; unwind it best effort before
		// reporting the failed charge.
		if _, cErr := s.carrier.CancelLabel(ctx, purchase.ExternalID, "payment failed"); cErr != nil {
			slog.Error("cancel unpaid label", "shipment_id", sh.ID, "error", cErr.Error())
		}
		if mErr := s.repo.MarkShipmentCancelled(ctx, sh.ID); mErr != nil {
			slog.Error("mark unpaid shipment cancelled", "shipment_id", sh.ID, "error", mErr.Error())
		}
		return nil, err
	}

	if sh.TrackingNumber != nil {
		desc := "Guía generada"
		if err := s.repo.InsertTrackingEvent(ctx, &models.TrackingEvent{
			ShipmentID:     sh.ID,
			TrackingNumber: *sh.TrackingNumber,
			Status:         models.TrackingStatusCreated,
			Description:    &desc,
			EventDate:      sh.CreatedAt,
		}); err != nil {
			slog.Warn("insert created event", "shipment_id", sh.ID, "error", err.Error())
		}
	}

	return &Confirmation{
		Shipment:    sh,
		Transaction: txn,
		Message: fmt.Sprintf("Envío creado con %s por $%s %s. Saldo restante: $%s",
			rate.Provider, amount.StringFixed(2), sh.Currency, txn.BalanceAfter.StringFixed(2)),
	}, nil
}

// Refund is the result of a cancellation.
type Refund struct {
	Shipment    *models.Shipment
	Transaction *models.Transaction
}

// CancelShipment cancels upstream first and refunds after. The cancelled
// state is terminal; a second cancel conflicts before any refund runs.
func (s *Service) CancelShipment(ctx context.Context, shipmentID, userID int64, reason string) (*Refund, error) {
	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh.UserID != userID {
		return nil, apperr.Forbidden("el envío pertenece a otro usuario")
	}
	if sh.Status == models.ShipmentStatusCancelled {
		return nil, apperr.Conflict("el envío ya está cancelado")
	}
	if sh.ExternalShipmentID == nil {
		return nil, apperr.Validation("shipmentId", "el envío no tiene identificador externo")
	}

	res, err := s.carrier.CancelLabel(ctx, *sh.ExternalShipmentID, reason)
	if err != nil {
		return nil, apperr.External("carrier", err)
	}
	if !res.Confirmed {
		return nil, apperr.External("carrier", fmt.Errorf("cancellation not confirmed for %s", *sh.ExternalShipmentID))
	}

	if err := s.repo.MarkShipmentCancelled(ctx, sh.ID); err != nil {
		return nil, err
	}
	sh.Status = models.ShipmentStatusCancelled

	desc := "Reembolso por cancelación de envío"
	if reason != "" {
		desc += ": " + reason
	}
	refType := models.ReferenceTypeShipment
	txn, err := s.wallet.Credit(ctx, userID, sh.Amount, desc, &sh.ID, &refType)
	if err != nil {
		return nil, err
	}

	if sh.TrackingNumber != nil {
		evDesc := "Envío cancelado"
		if err := s.repo.InsertTrackingEvent(ctx, &models.TrackingEvent{
			ShipmentID:     sh.ID,
			TrackingNumber: *sh.TrackingNumber,
			Status:         models.TrackingStatusCancelled,
			Description:    &evDesc,
			EventDate:      txn.CreatedAt,
		}); err != nil {
			slog.Warn("insert cancelled event", "shipment_id", sh.ID, "error", err.Error())
		}
	}

	return &Refund{Shipment: sh, Transaction: txn}, nil
}

// SyncShipment re-reads the purchase upstream and refreshes the local row.
// Safe to call repeatedly; the created event fires only when a tracking
// number appears for the first time.
func (s *Service) SyncShipment(ctx context.Context, shipmentID, userID int64) (*models.Shipment, error) {
	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh.UserID != userID {
		return nil, apperr.Forbidden("el envío pertenece a otro usuario")
	}
	if sh.Status == models.ShipmentStatusCancelled {
		return nil, apperr.Conflict("el envío ya está cancelado")
	}
	if sh.ExternalShipmentID == nil {
		return nil, apperr.Validation("shipmentId", "el envío no tiene identificador externo")
	}

	res, err := s.carrier.RefreshShipment(ctx, *sh.ExternalShipmentID)
	if err != nil {
		return nil, apperr.External("carrier", err)
	}

	hadTracking := sh.TrackingNumber != nil
	status := statusFromWorkflow(res.WorkflowStatus, res.TrackingNumber)
	if err := s.repo.UpdateShipmentSync(ctx, sh.ID, status, res.TrackingNumber, res.LabelURL); err != nil {
		return nil, err
	}

	if !hadTracking && res.TrackingNumber != nil {
		desc := "Guía generada"
		if err := s.repo.InsertTrackingEvent(ctx, &models.TrackingEvent{
			ShipmentID:     sh.ID,
			TrackingNumber: *res.TrackingNumber,
			Status:         models.TrackingStatusCreated,
			Description:    &desc,
			EventDate:      sh.CreatedAt,
		}); err != nil {
			slog.Warn("insert created event", "shipment_id", sh.ID, "error", err.Error())
		}
	}

	return s.repo.GetShipmentByID(ctx, sh.ID)
}

func (s *Service) GetShipment(ctx context.Context, shipmentID, userID int64) (*models.Shipment, error) {
	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh.UserID != userID {
		return nil, apperr.Forbidden("el envío pertenece a otro usuario")
	}
	return sh, nil
}

func (s *Service) ListShipments(ctx context.Context, userID int64, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListShipmentsByUser(ctx, userID, limit, offset)
}

// TrackByNumber is the public tracking lookup: current status plus history.
func (s *Service) TrackByNumber(ctx context.Context, trackingNumber string) (*models.Shipment, []*models.TrackingEvent, error) {
	if trackingNumber == "" {
		return nil, nil, apperr.Validation("trackingNumber", "es requerido")
	}
	sh, err := s.repo.GetShipmentByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.repo.ListTrackingEvents(ctx, sh.ID, 200, 0)
	if err != nil {
		return nil, nil, err
	}
	return sh, events, nil
}

// ApplyTracked applies one poller result, used by the shipment.tracked
// consumer.
func (s *Service) ApplyTracked(ctx context.Context, upd pgbroker.TrackingUpdate) error {
	return s.repo.ApplyShipmentTracked(ctx, upd)
}

func (s *Service) matchRate(ctx context.Context, in models.ShipmentCreateInput) (*models.RateQuote, error) {
	rates, err := s.rater.FreshRates(ctx, models.QuoteRequest{
		OriginZip:     in.Sender.Zip,
		DestZip:       in.Receiver.Zip,
		OriginColonia: in.Sender.Colonia,
		DestColonia:   in.Receiver.Colonia,
		Parcel:        in.Parcel,
	})
	if err != nil {
		return nil, err
	}
	for i := range rates {
		if rates[i].ID == in.RateID {
			return &rates[i], nil
		}
	}
	// Rate ids rotate between quote and purchase; fall back to the provider
	// the user picked.
	for i := range rates {
		if rates[i].Provider == in.Carrier {
			return &rates[i], nil
		}
	}
	return nil, apperr.Validation("rateId", "la tarifa seleccionada ya no está disponible")
}

func statusFromWorkflow(workflow string, trackingNumber *string) string {
	switch workflow {
	case carrier.WorkflowCompleted:
		if trackingNumber != nil {
			return models.ShipmentStatusCreated
		}
		return models.ShipmentStatusPending
	case carrier.WorkflowCancelled:
		return models.ShipmentStatusCancelled
	default:
		return models.ShipmentStatusPending
	}
}

func validateCreateInput(in models.ShipmentCreateInput) error {
	if in.RateID == "" {
		return apperr.Validation("rateId", "es requerido")
	}
	if in.Sender.Name == "" {
		return apperr.Validation("sender.name", "es requerido")
	}
	if in.Sender.Zip == "" {
		return apperr.Validation("sender.zip", "es requerido")
	}
	if in.Sender.Line() == "" {
		return apperr.Validation("sender.address", "es requerido")
	}
	if in.Receiver.Name == "" {
		return apperr.Validation("receiver.name", "es requerido")
	}
	if in.Receiver.Zip == "" {
		return apperr.Validation("receiver.zip", "es requerido")
	}
	if in.Receiver.Line() == "" {
		return apperr.Validation("receiver.address", "es requerido")
	}
	if !in.Parcel.WeightKg.IsPositive() {
		return apperr.Validation("parcel.weightKg", "debe ser mayor a cero")
	}
	if !in.ExpectedAmount.IsPositive() {
		return apperr.Validation("expectedAmount", "debe ser mayor a cero")
	}
	return nil
}
