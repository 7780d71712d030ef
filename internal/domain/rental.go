package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "PENDING"
	RentalStatusConfirmed RentalStatus = "CONFIRMED"
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusPending, RentalStatusConfirmed, RentalStatusActive, RentalStatusCompleted, RentalStatusCancelled:
		return true
	}
	return false
}

// Statuses that hold a vehicle for their date range.
var BlockingStatuses = []RentalStatus{RentalStatusConfirmed, RentalStatusActive}

type Rental struct {
	ID               string       `json:"id"`
	CustomerID       string       `json:"customer_id"`
	VehicleID        string       `json:"vehicle_id"`
	StartDate        time.Time    `json:"start_date"`
	EndDate          time.Time    `json:"end_date"`
	ActualReturnDate *time.Time   `json:"actual_return_date,omitempty"`
	PickupLocation   string       `json:"pickup_location"`
	DropoffLocation  string       `json:"dropoff_location"`
	Status           RentalStatus `json:"status"`
	// Price snapshot captured from the vehicle at booking time.
	DailyRate          decimal.Decimal `json:"daily_rate"`
	TotalDays          int             `json:"total_days"`
	Extras             []string        `json:"extras"`
	ExtrasCost         decimal.Decimal `json:"extras_cost"`
	Subtotal           decimal.Decimal `json:"subtotal"` // base + extras, before discount
	Discount           decimal.Decimal `json:"discount"`
	Tax                decimal.Decimal `json:"tax"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	MileageStart       *int            `json:"mileage_start,omitempty"`
	MileageEnd         *int            `json:"mileage_end,omitempty"`
	Notes              string          `json:"notes"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	Version            int             `json:"version"`
	CreatedOn          time.Time       `json:"created_on"`
	UpdatedOn          time.Time       `json:"updated_on"`
}

// Overlaps uses half-open intervals: a rental ending exactly when another
// starts does not overlap it.
func (r *Rental) Overlaps(start, end time.Time) bool {
	return r.StartDate.Before(end) && r.EndDate.After(start)
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (r *Rental) Clone() *Rental {
	c := *r
	if r.ActualReturnDate != nil {
		t := *r.ActualReturnDate
		c.ActualReturnDate = &t
	}
	if r.MileageStart != nil {
		m := *r.MileageStart
		c.MileageStart = &m
	}
	if r.MileageEnd != nil {
		m := *r.MileageEnd
		c.MileageEnd = &m
	}
	c.Extras = append([]string(nil), r.Extras...)
	return &c
}

// TransitionContext carries the caller-supplied data some transitions require.
type TransitionContext struct {
	MileageStart *int
	MileageEnd   *int
	Reason       string
	Notes        string
}

type CancellationResult struct {
	Rental         *Rental         `json:"rental"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	RefundPercent  int             `json:"refund_percent"`
	DaysUntilStart int             `json:"days_until_start"`
}

type LateFeeResult struct {
	RentalID    string          `json:"rental_id"`
	IsOverdue   bool            `json:"is_overdue"`
	LateDays    int             `json:"late_days"`
	FeePerDay   decimal.Decimal `json:"fee_per_day"`
	LateFee     decimal.Decimal `json:"late_fee"`
	OriginalEnd time.Time       `json:"original_end"`
	AsOf        time.Time       `json:"as_of"`
}

type RentalSummary struct {
	Rental       *Rental         `json:"rental"`
	Customer     *Customer       `json:"customer,omitempty"`
	Vehicle      *Vehicle        `json:"vehicle,omitempty"`
	Payments     []Payment       `json:"payments"`
	PlannedDays  int             `json:"planned_days"`
	ActualDays   *int            `json:"actual_days,omitempty"`
	MileageTotal *int            `json:"mileage_total,omitempty"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Balance      decimal.Decimal `json:"balance"`
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *RentalSummary) Clone() *RentalSummary {
	c := *s
	if s.Rental != nil {
		c.Rental = s.Rental.Clone()
	}
	if s.Customer != nil {
		cust := *s.Customer
		c.Customer = &cust
	}
	if s.Vehicle != nil {
		v := *s.Vehicle
		c.Vehicle = &v
	}
	if s.Payments != nil {
		c.Payments = append(make([]Payment, 0, len(s.Payments)), s.Payments...)
	}
	if s.ActualDays != nil {
		n := *s.ActualDays
		c.ActualDays = &n
	}
	if s.MileageTotal != nil {
		n := *s.MileageTotal
		c.MileageTotal = &n
	}
	return &c
}
