package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/services/quotes"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (a *API) handleListRecharges(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	recs, err := a.wallet.ListRecharges(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	out := make([]rechargeDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRechargeDTO(rec))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"rechargeRequests": out})
}

type processRechargeDTO struct {
	Notes string `json:"notes"`
}

func (a *API) handleApproveRecharge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req processRechargeDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	txn, err := a.wallet.ApproveRecharge(r.Context(), id, userIDFrom(r.Context()), req.Notes)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"transaction": toTransactionDTO(txn)})
}

func (a *API) handleRejectRecharge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req processRechargeDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := a.wallet.RejectRecharge(r.Context(), id, userIDFrom(r.Context()), req.Notes); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"status": models.RechargeStatusRejected})
}

func (a *API) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	set, err := a.settings.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"key": set.Key, "value": set.Value})
}

type upsertSettingDTO struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (a *API) handleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req upsertSettingDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperr.Validation("body", "JSON inválido"))
		return
	}
	if req.Value == "" {
		respondWithError(w, apperr.Validation("value", "es requerido"))
		return
	}

	// The margin drives every displayed price; reject nonsense early.
	if key == models.SettingProfitMarginPercentage {
		p, err := decimal.NewFromString(req.Value)
		if err != nil || !quotes.ValidMarginPercent(p) {
			respondWithError(w, apperr.Validation("value", "debe ser un porcentaje entre 0 y 100"))
			return
		}
	}

	set, err := a.settings.UpsertSetting(r.Context(), key, req.Value, req.Description)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"key": set.Key, "value": set.Value})
}
