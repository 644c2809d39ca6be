package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
)

type quoteRequestDTO struct {
	OriginZip     string    `json:"originZip"`
	DestZip       string    `json:"destZip"`
	OriginColonia string    `json:"originColonia"`
	DestColonia   string    `json:"destColonia"`
	Parcel        parcelDTO `json:"parcel"`
}

func (a *API) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperr.Validation("body", "JSON inválido"))
		return
	}

	rates, err := a.quotes.GetQuotes(r.Context(), userIDFrom(r.Context()), models.QuoteRequest{
		OriginZip:     req.OriginZip,
		DestZip:       req.DestZip,
		OriginColonia: req.OriginColonia,
		DestColonia:   req.DestColonia,
		Parcel:        req.Parcel.model(),
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"rates": rates})
}
