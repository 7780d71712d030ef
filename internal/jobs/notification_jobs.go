package jobs

import (
	"context"

	"rentacar-backend/internal/logger"
)

// SendPickupReminders reminds customers of CONFIRMED rentals starting within
// the configured lead time. Each rental is reminded once.
func (jr *JobRunner) SendPickupReminders() {
	jr.runWithRecovery("SendPickupReminders", func() {
		sent := jr.sendPickupReminders(context.Background())
		logger.Info("Pickup reminders sent", "count", sent)
	})
}

func (jr *JobRunner) sendPickupReminders(ctx context.Context) int {
	rentals, err := jr.services.Reservations.ListStartingWithin(ctx, jr.config.Policy.ReminderLead)
	if err != nil {
		logger.Error("Failed to list upcoming rentals", "error", err)
		return 0
	}

	count := 0
	for _, rental := range rentals {
		key := "pickup:" + rental.ID
		if _, done := jr.sent.Get(key); done {
			continue
		}

		customer, err := jr.services.Customers.GetByID(ctx, rental.CustomerID)
		if err != nil {
			logger.Warn("Skipping pickup reminder, customer lookup failed",
				"rental_id", rental.ID,
				"customer_id", rental.CustomerID,
				"error", err)
			continue
		}

		if err := jr.services.Email.SendPickupReminder(ctx, customer, &rental); err != nil {
			logger.Error("Failed to send pickup reminder",
				"rental_id", rental.ID,
				"email", customer.Email,
				"error", err)
			continue
		}

		jr.sent.SetDefault(key, true)
		count++
		logger.Debug("Sent pickup reminder", "rental_id", rental.ID, "start_date", rental.StartDate)
	}
	return count
}
