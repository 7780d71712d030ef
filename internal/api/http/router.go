package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentacar-backend/internal/security"
)

// NewRouter registers every route under a name that config.EndpointSecurityConfig
// knows about.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	r.Use(Recoverer, RequestLogger, NewAuthMiddleware(tm).Handler)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("Health")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rentals", h.CreateRental).Methods(http.MethodPost).Name("CreateRental")
	api.HandleFunc("/rentals/{id}", h.GetRentalSummary).Methods(http.MethodGet).Name("GetRentalSummary")
	api.HandleFunc("/rentals/{id}/history", h.GetRentalHistory).Methods(http.MethodGet).Name("GetRentalHistory")
	api.HandleFunc("/rentals/{id}/cancel", h.CancelRental).Methods(http.MethodPost).Name("CancelRental")
	api.HandleFunc("/rentals/{id}/status", h.UpdateRentalStatus).Methods(http.MethodPost).Name("UpdateRentalStatus")
	api.HandleFunc("/rentals/{id}/late-fees", h.GetLateFees).Methods(http.MethodGet).Name("GetLateFees")
	api.HandleFunc("/rentals/{id}/payments", h.RecordPayment).Methods(http.MethodPost).Name("RecordPayment")
	api.HandleFunc("/vehicles/{id}/availability", h.CheckAvailability).Methods(http.MethodGet).Name("CheckAvailability")
	api.HandleFunc("/payments/{id}/status", h.UpdatePaymentStatus).Methods(http.MethodPost).Name("UpdatePaymentStatus")

	return r
}
