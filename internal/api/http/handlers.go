package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/service"
	"rentacar-backend/internal/utils"
)

// Handler adapts the reservation and payment services to JSON over HTTP.
type Handler struct {
	reservations service.ReservationService
	payments     service.PaymentService
}

func NewHandler(reservations service.ReservationService, payments service.PaymentService) *Handler {
	return &Handler{
		reservations: reservations,
		payments:     payments,
	}
}

type createRentalRequest struct {
	CustomerID      string          `json:"customer_id"`
	VehicleID       string          `json:"vehicle_id"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	PickupLocation  string          `json:"pickup_location"`
	DropoffLocation string          `json:"dropoff_location"`
	Discount        decimal.Decimal `json:"discount"`
	Extras          []string        `json:"extras"`
	Notes           string          `json:"notes"`
}

type cancelRentalRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status       domain.RentalStatus `json:"status"`
	MileageStart *int                `json:"mileage_start"`
	MileageEnd   *int                `json:"mileage_end"`
	Reason       string              `json:"reason"`
	Notes        string              `json:"notes"`
}

type recordPaymentRequest struct {
	Amount decimal.Decimal      `json:"amount"`
	Method domain.PaymentMethod `json:"method"`
}

type updatePaymentStatusRequest struct {
	Status domain.PaymentStatus `json:"status"`
}

type historyResponse struct {
	RentalID string               `json:"rental_id"`
	Status   domain.RentalStatus  `json:"status"`
	Events   []domain.RentalEvent `json:"events"`
}

type availabilityResponse struct {
	VehicleID string    `json:"vehicle_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Available bool      `json:"available"`
}

// decode treats an empty body as the zero request.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeStatus(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// authorizeRental lets staff see everything and customers only their own
// rentals. Foreign rentals look like missing ones.
func (h *Handler) authorizeRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	rental, err := h.reservations.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.HasRole(security.RoleStaff) || claims.CustomerID == rental.CustomerID {
		return rental, nil
	}
	return nil, domain.NotFoundError("rental", rentalID)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if !decode(w, r, &req) {
		return
	}

	start, err := utils.ParseTimestamp(req.StartDate)
	if err != nil {
		writeError(w, domain.ValidationError("invalid start_date %q", req.StartDate))
		return
	}
	end, err := utils.ParseTimestamp(req.EndDate)
	if err != nil {
		writeError(w, domain.ValidationError("invalid end_date %q", req.EndDate))
		return
	}

	customerID := req.CustomerID
	if claims := ClaimsFromContext(r.Context()); claims != nil && !claims.HasRole(security.RoleStaff) {
		customerID = claims.CustomerID
	}

	rental, err := h.reservations.CreateRental(r.Context(), service.CreateRentalRequest{
		CustomerID:      customerID,
		VehicleID:       req.VehicleID,
		StartDate:       start,
		EndDate:         end,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		Discount:        req.Discount,
		Extras:          req.Extras,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (h *Handler) GetRentalSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.authorizeRental(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.reservations.GetSummary(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetRentalHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.authorizeRental(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	history, err := h.reservations.GetRentalHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := historyResponse{RentalID: id, Events: history}
	if status, err := service.ReplayStatus(history); err == nil {
		resp.Status = status
	} else {
		logger.WithRental(id).Warn("Event history does not replay", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelRental(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req cancelRentalRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.authorizeRental(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.reservations.CancelRental(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdateRentalStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	rental, err := h.reservations.UpdateStatus(r.Context(), id, req.Status, domain.TransitionContext{
		MileageStart: req.MileageStart,
		MileageEnd:   req.MileageEnd,
		Reason:       req.Reason,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *Handler) GetLateFees(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.authorizeRental(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	fees, err := h.reservations.CalculateLateFees(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["id"]
	q := r.URL.Query()
	start, err := utils.ParseTimestamp(q.Get("start"))
	if err != nil {
		writeError(w, domain.ValidationError("invalid start %q", q.Get("start")))
		return
	}
	end, err := utils.ParseTimestamp(q.Get("end"))
	if err != nil {
		writeError(w, domain.ValidationError("invalid end %q", q.Get("end")))
		return
	}

	available, err := h.reservations.IsAvailable(r.Context(), vehicleID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		VehicleID: vehicleID,
		StartDate: start,
		EndDate:   end,
		Available: available,
	})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req recordPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.authorizeRental(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	payment, err := h.payments.RecordPayment(r.Context(), id, req.Amount, req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updatePaymentStatusRequest
	if !decode(w, r, &req) {
		return
	}
	payment, err := h.payments.UpdatePaymentStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
