package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"
)

func TestEmailService_DisabledWithoutAPIKey(t *testing.T) {
	svc := service.NewEmailService("", "no-reply@rentacar.local", "Rent-a-Car")
	ctx := context.Background()
	customer := &domain.Customer{ID: "cust-1", Name: "Ana Lima", Email: "ana@example.com"}
	rental := &domain.Rental{ID: "8a1f0c2e-rental", StartDate: day(10), EndDate: day(12), PickupLocation: "Airport"}

	assert.NoError(t, svc.SendPickupReminder(ctx, customer, rental))
	assert.NoError(t, svc.SendOverdueNotice(ctx, customer, rental, &domain.LateFeeResult{LateDays: 2, FeePerDay: d("50"), LateFee: d("100")}))

	err := svc.SendPickupReminder(ctx, &domain.Customer{ID: "cust-2"}, rental)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
