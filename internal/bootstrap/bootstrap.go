// Package bootstrap builds the dependency graph shared by the server and the
// cronjob binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/events"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/repository/memory"
	"rentacar-backend/internal/repository/postgres"
	"rentacar-backend/internal/service"
	"rentacar-backend/internal/utils"
)

// OpenStore returns the configured store and a function releasing it.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, func() error, error) {
	switch cfg.Database.Type {
	case "memory":
		store := memory.NewStore()
		if cfg.Database.FixturesFile != "" {
			if err := store.LoadFixtures(cfg.Database.FixturesFile); err != nil {
				return nil, nil, fmt.Errorf("failed to load fixtures: %w", err)
			}
			logger.Info("Loaded fixtures", "file", cfg.Database.FixturesFile)
		}
		return store, func() error { return nil }, nil

	case "postgres":
		logger.Info("Connecting to database...", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
			}
			logger.Info("Database schema ensured")
		}
		logger.Info("Database connection established")
		return postgres.NewStore(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
}

// Container holds the wired services. Built once at startup and passed down.
type Container struct {
	Store        repository.Store
	Events       *events.Dispatcher
	Cache        *service.ReadCache
	Reservations service.ReservationService
	Payments     service.PaymentService
	Email        service.EmailService
}

// NewContainer wires every service from cfg over store.
func NewContainer(cfg *config.Config, store repository.Store) (*Container, error) {
	dispatcher, err := events.NewDispatcherFromConfig(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event dispatcher: %w", err)
	}

	cache := service.NewReadCache(cfg.Cache.AvailabilityTTL, cfg.Cache.SummaryTTL)
	pricing := utils.NewPricingCalculator(cfg.TaxRate(), cfg.ExtraRates())
	policy := service.Policy{
		MinRentalDays: cfg.Policy.MinRentalDays,
		MaxRentalDays: cfg.Policy.MaxRentalDays,
		LateFeePerDay: cfg.LateFeePerDay(),
		RefundTiers:   cfg.Policy.RefundTiers,
	}

	return &Container{
		Store:        store,
		Events:       dispatcher,
		Cache:        cache,
		Reservations: service.NewReservationService(store, pricing, policy, dispatcher, cache, nil),
		Payments:     service.NewPaymentService(store, dispatcher, cache, nil),
		Email:        service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName),
	}, nil
}

// Close drains pending events.
func (c *Container) Close(ctx context.Context) error {
	return c.Events.Close(ctx)
}
