package httpapi

import (
	"context"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/auth"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/services/quotes"
	"github.com/PaqueMex/EnvioBox/internal/services/shipments"
	"github.com/PaqueMex/EnvioBox/internal/services/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

var errForbiddenAdmin = apperr.Forbidden("se requiere rol de administrador")

// SettingsStore is the slice of storage the admin settings endpoints use.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	UpsertSetting(ctx context.Context, key, value, description string) (*models.Setting, error)
}

type API struct {
	quotes    *quotes.Service
	shipments *shipments.Service
	wallet    *wallet.Service
	settings  SettingsStore
	resolver  auth.SubjectResolver
}

func New(q *quotes.Service, sh *shipments.Service, w *wallet.Service, settings SettingsStore, resolver auth.SubjectResolver) *API {
	return &API{quotes: q, shipments: sh, wallet: w, settings: settings, resolver: resolver}
}

// Router builds the full HTTP surface. swaggerPath points at the generated
// spec file; when empty the docs routes are skipped.
func (a *API) Router(swaggerPath string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		// Anyone with a tracking number can follow a shipment.
		r.Get("/tracking/{trackingNumber}", a.handleTracking)

		r.Group(func(r chi.Router) {
			r.Use(a.withIdentity)

			r.Post("/quotes", a.handleCreateQuote)

			r.Post("/shipments", a.handleCreateShipment)
			r.Get("/shipments", a.handleListShipments)
			r.Get("/shipments/{id}", a.handleGetShipment)
			r.Post("/shipments/{id}/sync", a.handleSyncShipment)
			r.Post("/shipments/{id}/cancel", a.handleCancelShipment)

			r.Get("/wallet/balance", a.handleBalance)
			r.Get("/wallet/transactions", a.handleTransactions)
			r.Post("/wallet/recharge", a.handleRequestRecharge)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/recharge", a.handleListRecharges)
				r.Post("/recharge/{id}/approve", a.handleApproveRecharge)
				r.Post("/recharge/{id}/reject", a.handleRejectRecharge)

				r.Get("/settings/{key}", a.handleGetSetting)
				r.Put("/settings/{key}", a.handleUpsertSetting)
			})
		})
	})

	return r
}
