package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/shopspring/decimal"
)

func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	u, err := a.wallet.GetBalance(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"balance":  u.Balance,
		"currency": u.Currency,
	})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	txns, err := a.wallet.GetTransactions(r.Context(), userIDFrom(r.Context()), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	out := make([]transactionDTO, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionDTO(t))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type rechargeRequestDTO struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	VoucherRef *string         `json:"voucherRef"`
}

func (a *API) handleRequestRecharge(w http.ResponseWriter, r *http.Request) {
	var req rechargeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperr.Validation("body", "JSON inválido"))
		return
	}

	rec, err := a.wallet.RequestRecharge(r.Context(), userIDFrom(r.Context()), req.Amount, req.Method, req.VoucherRef)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"rechargeRequest": toRechargeDTO(rec)})
}
