package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createShipmentDTO struct {
	RateID         string          `json:"rateId"`
	Carrier        string          `json:"carrier"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Currency       string          `json:"currency"`
	Sender         addressDTO      `json:"sender"`
	Receiver       addressDTO      `json:"receiver"`
	Parcel         parcelDTO       `json:"parcel"`
}

func (a *API) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperr.Validation("body", "JSON inválido"))
		return
	}

	conf, err := a.shipments.CreateShipment(r.Context(), userIDFrom(r.Context()), models.ShipmentCreateInput{
		RateID:         req.RateID,
		Carrier:        req.Carrier,
		ExpectedAmount: req.ExpectedAmount,
		Currency:       req.Currency,
		Sender:         req.Sender.model(),
		Receiver:       req.Receiver.model(),
		Parcel:         req.Parcel.model(),
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"shipment":    toShipmentDTO(conf.Shipment),
		"transaction": toTransactionDTO(conf.Transaction),
		"message":     conf.Message,
	})
}

func (a *API) handleListShipments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	shs, err := a.shipments.ListShipments(r.Context(), userIDFrom(r.Context()), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"shipments": toShipmentDTOs(shs)})
}

func (a *API) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}
	sh, err := a.shipments.GetShipment(r.Context(), id, userIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"shipment": toShipmentDTO(sh)})
}

func (a *API) handleSyncShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}
	sh, err := a.shipments.SyncShipment(r.Context(), id, userIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"shipment": toShipmentDTO(sh)})
}

type cancelShipmentDTO struct {
	Reason string `json:"reason"`
}

func (a *API) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req cancelShipmentDTO
	if r.Body != nil {
		// Body is optional; a bare POST cancels without a reason.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	refund, err := a.shipments.CancelShipment(r.Context(), id, userIDFrom(r.Context()), req.Reason)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"shipment":       toShipmentDTO(refund.Shipment),
		"refund":         toTransactionDTO(refund.Transaction),
		"refundedAmount": refund.Transaction.Amount,
	})
}

func (a *API) handleTracking(w http.ResponseWriter, r *http.Request) {
	trackingNumber := chi.URLParam(r, "trackingNumber")
	sh, evs, err := a.shipments.TrackByNumber(r.Context(), trackingNumber)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"trackingNumber": trackingNumber,
		"carrier":        sh.Carrier,
		"status":         sh.TrackingStatus,
		"events":         toTrackingEventDTOs(evs),
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, "debe ser un entero positivo")
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
