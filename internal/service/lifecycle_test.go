package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"
)

func TestCanTransition(t *testing.T) {
	all := []domain.RentalStatus{
		domain.RentalStatusPending,
		domain.RentalStatusConfirmed,
		domain.RentalStatusActive,
		domain.RentalStatusCompleted,
		domain.RentalStatusCancelled,
	}
	legal := map[[2]domain.RentalStatus]bool{
		{domain.RentalStatusPending, domain.RentalStatusConfirmed}:   true,
		{domain.RentalStatusPending, domain.RentalStatusCancelled}:   true,
		{domain.RentalStatusConfirmed, domain.RentalStatusActive}:    true,
		{domain.RentalStatusConfirmed, domain.RentalStatusCancelled}: true,
		{domain.RentalStatusActive, domain.RentalStatusCompleted}:    true,
		{domain.RentalStatusActive, domain.RentalStatusCancelled}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]domain.RentalStatus{from, to}], service.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestReplayStatus(t *testing.T) {
	ev := func(v int, typ domain.EventType) domain.RentalEvent {
		return domain.RentalEvent{RentalID: "r1", Version: v, Type: typ}
	}

	t.Run("Folds History", func(t *testing.T) {
		status, err := service.ReplayStatus([]domain.RentalEvent{
			ev(1, domain.EventRentalCreated),
			ev(2, domain.EventPaymentReceived),
			ev(3, domain.EventRentalConfirmed),
			ev(4, domain.EventRentalCancelled),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCancelled, status)
	})

	t.Run("Created Only", func(t *testing.T) {
		status, err := service.ReplayStatus([]domain.RentalEvent{ev(1, domain.EventRentalCreated)})
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusPending, status)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := service.ReplayStatus(nil)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Missing Created", func(t *testing.T) {
		_, err := service.ReplayStatus([]domain.RentalEvent{ev(1, domain.EventRentalConfirmed)})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Version Not Increasing", func(t *testing.T) {
		_, err := service.ReplayStatus([]domain.RentalEvent{
			ev(1, domain.EventRentalCreated),
			ev(2, domain.EventRentalConfirmed),
			ev(2, domain.EventRentalStarted),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Illegal Step", func(t *testing.T) {
		_, err := service.ReplayStatus([]domain.RentalEvent{
			ev(1, domain.EventRentalCreated),
			ev(2, domain.EventRentalCompleted),
		})
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})
}
