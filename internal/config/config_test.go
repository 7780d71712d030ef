package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  type: memory
jwt:
  secret: 0123456789abcdef0123456789abcdef
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.TaxRate().Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.ExtraRates()["insurance"].Equal(decimal.RequireFromString("10")))
	assert.True(t, cfg.LateFeePerDay().Equal(decimal.RequireFromString("50")))
	assert.Equal(t, 1, cfg.Policy.MinRentalDays)
	assert.Equal(t, 365, cfg.Policy.MaxRentalDays)
	assert.Len(t, cfg.Policy.RefundTiers, 3)
	assert.Equal(t, 24*time.Hour, cfg.Policy.ReminderLead)
	assert.Equal(t, 2*time.Minute, cfg.Cache.AvailabilityTTL)
	assert.Equal(t, "log", cfg.Events.Driver)
	assert.Equal(t, 3, cfg.Events.MaxAttempts)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.CheckOverdueRentals)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_NAME", "rentals")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres://svc:@db.internal:5432/rentals?sslmode=disable", cfg.GetDatabaseConnectionString())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "rental-events", cfg.Events.Topic)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"short secret":     "database: {type: memory}\njwt: {secret: short}\n",
		"bad tax rate":     minimalYAML + "pricing:\n  tax_rate: ten\n",
		"negative extra":   minimalYAML + "pricing:\n  extras:\n    gps: \"-1\"\n",
		"bad refund tier":  minimalYAML + "policy:\n  refund_tiers:\n    - {min_days: 3, percent: 150}\n",
		"unknown driver":   minimalYAML + "events:\n  driver: carrier-pigeon\n",
		"rabbit no url":    minimalYAML + "events:\n  driver: rabbitmq\n",
		"postgres no host": "database: {type: postgres, user: u, database: d}\njwt: {secret: 0123456789abcdef0123456789abcdef}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"policy:\n  late_fee_per_day: \"75.50\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.LateFeePerDay().Equal(decimal.RequireFromString("75.50")))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRouteSecurity(t *testing.T) {
	assert.Equal(t, SecurityPublic, RouteSecurity("Health"))
	assert.Equal(t, SecurityStaff, RouteSecurity("UpdateRentalStatus"))
	assert.Equal(t, SecurityAccess, RouteSecurity("SomethingNew"))
}
