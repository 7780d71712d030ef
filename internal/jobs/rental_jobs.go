package jobs

import (
	"context"
	"fmt"

	"rentacar-backend/internal/logger"
)

// CheckOverdueRentals emails an overdue notice for every ACTIVE rental past
// its end date, at most once per rental per late day.
func (jr *JobRunner) CheckOverdueRentals() {
	jr.runWithRecovery("CheckOverdueRentals", func() {
		sent := jr.checkOverdueRentals(context.Background())
		logger.Info("Overdue notices sent", "count", sent)
	})
}

func (jr *JobRunner) checkOverdueRentals(ctx context.Context) int {
	rentals, err := jr.services.Reservations.ListOverdue(ctx)
	if err != nil {
		logger.Error("Failed to list overdue rentals", "error", err)
		return 0
	}

	count := 0
	for _, rental := range rentals {
		fee, err := jr.services.Reservations.CalculateLateFees(ctx, rental.ID)
		if err != nil {
			logger.Error("Failed to calculate late fees", "rental_id", rental.ID, "error", err)
			continue
		}

		key := fmt.Sprintf("overdue:%s:%d", rental.ID, fee.LateDays)
		if _, done := jr.sent.Get(key); done {
			continue
		}

		customer, err := jr.services.Customers.GetByID(ctx, rental.CustomerID)
		if err != nil {
			logger.Warn("Skipping overdue notice, customer lookup failed",
				"rental_id", rental.ID,
				"customer_id", rental.CustomerID,
				"error", err)
			continue
		}

		if err := jr.services.Email.SendOverdueNotice(ctx, customer, &rental, fee); err != nil {
			logger.Error("Failed to send overdue notice",
				"rental_id", rental.ID,
				"customer_id", customer.ID,
				"error", err)
			continue
		}

		jr.sent.SetDefault(key, true)
		count++
		logger.Debug("Sent overdue notice",
			"rental_id", rental.ID,
			"late_days", fee.LateDays,
			"late_fee", fee.LateFee.StringFixed(2))
	}
	return count
}
