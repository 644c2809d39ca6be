package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
)

type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   *errBody `json:"error,omitempty"`
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// respondWithError maps domain errors to HTTP statuses. Messages are what
// the UI shows, so they stay in Spanish; internals are logged, not leaked.
func respondWithError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errBody{Code: "internal_error", Message: "Error interno del servidor"}

	var (
		ve  *apperr.ValidationError
		nfe *apperr.NotFoundError
		fe  *apperr.ForbiddenError
		ce  *apperr.ConflictError
		ife *apperr.InsufficientFundsError
		ese *apperr.ExternalServiceError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body = errBody{
			Code:    "validation_error",
			Message: "Solicitud inválida",
			Details: map[string]string{"field": ve.Field, "reason": ve.Reason},
		}
	case errors.As(err, &nfe):
		status = http.StatusNotFound
		body = errBody{Code: "not_found", Message: "Recurso no encontrado"}
	case errors.As(err, &fe):
		status = http.StatusForbidden
		body = errBody{Code: "forbidden", Message: "No tienes permiso para esta operación"}
	case errors.As(err, &ce):
		status = http.StatusConflict
		body = errBody{Code: "conflict", Message: "La operación no es válida en el estado actual"}
	case errors.As(err, &ife):
		status = http.StatusPaymentRequired
		body = errBody{
			Code:    "insufficient_funds",
			Message: "Saldo insuficiente para completar la operación",
			Details: map[string]string{
				"required":  ife.Required.StringFixed(2),
				"available": ife.Available.StringFixed(2),
			},
		}
	case errors.As(err, &ese):
		status = http.StatusBadGateway
		body = errBody{Code: "external_service_error", Message: "No se pudo completar la operación con la paquetería"}
		slog.Error("external service failure", "service", ese.Service, "error", ese.Err.Error())
	default:
		slog.Error("unhandled error", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &body})
}

// respondUnauthorized is used by the identity middleware: absent or
// malformed proxy headers are a 401, not a 403.
func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &errBody{
		Code: "unauthorized", Message: "Autenticación requerida",
	}})
}
