package events

import (
	"fmt"

	"rentacar-backend/internal/config"
)

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.URL, cfg.Exchange)
	case "log", "":
		return LogPublisher{}, nil
	}
	return nil, fmt.Errorf("unsupported events driver: %s", cfg.Driver)
}

// NewDispatcherFromConfig wires a publisher and dispatcher from configuration.
func NewDispatcherFromConfig(cfg config.EventsConfig) (*Dispatcher, error) {
	pub, err := NewPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(pub, DispatcherOptions{
		BufferSize:     cfg.BufferSize,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		PublishTimeout: cfg.PublishTimeout,
	}), nil
}
