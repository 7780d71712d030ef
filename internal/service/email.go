package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/utils"
)

const (
	emailAttempts = 3
	emailBackoff  = 500 * time.Millisecond
)

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *sendgrid.Client
}

// NewEmailService returns a SendGrid backed sender. With an empty apiKey
// messages are logged and dropped.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	s := &emailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

func (s *emailService) SendOverdueNotice(ctx context.Context, customer *domain.Customer, rental *domain.Rental, fee *domain.LateFeeResult) error {
	subject := fmt.Sprintf("Your rental %s is overdue", shortID(rental.ID))
	body := fmt.Sprintf("Hello %s,\n\nYour rental was due back on %s and is now %d day(s) late.\n"+
		"A late fee of %s per day applies. Current late fee: %s.\n\n"+
		"Please return the vehicle as soon as possible.\n\nBest regards,\nThe Rent-a-Car Team",
		customer.Name,
		rental.EndDate.Format(time.RFC1123),
		fee.LateDays,
		fee.FeePerDay.StringFixed(2),
		fee.LateFee.StringFixed(2),
	)
	return s.send(ctx, customer, subject, body)
}

func (s *emailService) SendPickupReminder(ctx context.Context, customer *domain.Customer, rental *domain.Rental) error {
	subject := fmt.Sprintf("Pickup reminder for rental %s", shortID(rental.ID))
	body := fmt.Sprintf("Hello %s,\n\nThis is a reminder that your rental starts on %s.\n"+
		"Pickup location: %s\n\nBest regards,\nThe Rent-a-Car Team",
		customer.Name,
		rental.StartDate.Format(time.RFC1123),
		rental.PickupLocation,
	)
	return s.send(ctx, customer, subject, body)
}

func (s *emailService) send(ctx context.Context, customer *domain.Customer, subject, body string) error {
	if customer.Email == "" {
		return domain.ValidationError("customer %s has no email address", customer.ID)
	}
	if s.client == nil {
		logger.Info("Email delivery disabled, dropping message", "to", customer.Email, "subject", subject)
		return nil
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail(customer.Name, customer.Email),
		body,
		"",
	)

	logger.ExternalServiceCall("sendgrid", "Send", "to", customer.Email, "subject", subject)
	err := utils.Retry(ctx, emailAttempts, emailBackoff, func(ctx context.Context) error {
		response, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		}
		return nil
	})
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", customer.Email)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
