package utils

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
)

const Day = 24 * time.Hour

// Extras accepted at booking. Unpriced ones are free of charge.
var RecognizedExtras = []string{"insurance", "gps", "child_seat", "wifi_hotspot", "car_wash"}

var (
	DefaultTaxRate       = decimal.RequireFromString("0.10")
	DefaultInsuranceRate = decimal.RequireFromString("10.00")
)

// PriceQuote is the full breakdown for one booking.
type PriceQuote struct {
	DurationDays int             `json:"duration_days"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ExtrasCost   decimal.Decimal `json:"extras_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// PricingCalculator is stateless once built and safe for concurrent use.
type PricingCalculator struct {
	taxRate    decimal.Decimal
	extraRates map[string]decimal.Decimal
}

// NewPricingCalculator builds a calculator. extraRates maps extra name to its
// daily surcharge; names not in RecognizedExtras are added to the recognized set.
func NewPricingCalculator(taxRate decimal.Decimal, extraRates map[string]decimal.Decimal) *PricingCalculator {
	rates := make(map[string]decimal.Decimal, len(RecognizedExtras))
	for _, name := range RecognizedExtras {
		rates[name] = decimal.Zero
	}
	for name, rate := range extraRates {
		rates[strings.ToLower(name)] = rate
	}
	return &PricingCalculator{taxRate: taxRate, extraRates: rates}
}

// NewDefaultPricingCalculator uses a 10% tax and 10.00/day insurance.
func NewDefaultPricingCalculator() *PricingCalculator {
	return NewPricingCalculator(DefaultTaxRate, map[string]decimal.Decimal{"insurance": DefaultInsuranceRate})
}

func (p *PricingCalculator) TaxRate() decimal.Decimal {
	return p.taxRate
}

// IsRecognizedExtra reports whether name can be booked.
func (p *PricingCalculator) IsRecognizedExtra(name string) bool {
	_, ok := p.extraRates[strings.ToLower(name)]
	return ok
}

// Extras lists recognized extra names in stable order.
func (p *PricingCalculator) Extras() []string {
	names := make([]string, 0, len(p.extraRates))
	for name := range p.extraRates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WholeDays counts complete days between start and end. Partial days are
// dropped, so anything under 24h is 0.
func WholeDays(start, end time.Time) int {
	return int(end.Sub(start) / Day)
}

// DurationDays counts whole days between start and end, minimum 1. Used for
// elapsed time of an existing rental, never to validate a booking.
func DurationDays(start, end time.Time) int {
	if days := WholeDays(start, end); days > 1 {
		return days
	}
	return 1
}

// Calculate prices a booking of dailyRate between start and end.
func (p *PricingCalculator) Calculate(dailyRate decimal.Decimal, start, end time.Time, extras []string) (*PriceQuote, error) {
	if !dailyRate.IsPositive() {
		return nil, domain.InvalidInputError("daily rate must be greater than zero, got %s", dailyRate.StringFixed(2))
	}
	days := WholeDays(start, end)
	if days < 1 {
		return nil, domain.InvalidInputError("rental duration must be at least one day, got %s", end.Sub(start))
	}
	return p.CalculateForDays(dailyRate, days, extras)
}

// CalculateForDays prices a booking of a known number of days.
func (p *PricingCalculator) CalculateForDays(dailyRate decimal.Decimal, days int, extras []string) (*PriceQuote, error) {
	if !dailyRate.IsPositive() {
		return nil, domain.InvalidInputError("daily rate must be greater than zero, got %s", dailyRate.StringFixed(2))
	}
	if days < 1 {
		return nil, domain.InvalidInputError("rental duration must be at least one day, got %d", days)
	}

	n := decimal.NewFromInt(int64(days))
	subtotal := dailyRate.Mul(n).Round(2)

	extrasCost := decimal.Zero
	seen := make(map[string]bool, len(extras))
	for _, extra := range extras {
		name := strings.ToLower(strings.TrimSpace(extra))
		rate, ok := p.extraRates[name]
		if !ok {
			return nil, domain.InvalidInputError("unrecognized extra %q", extra)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		extrasCost = extrasCost.Add(rate.Mul(n))
	}
	extrasCost = extrasCost.Round(2)

	tax := subtotal.Add(extrasCost).Mul(p.taxRate).Round(2)

	return &PriceQuote{
		DurationDays: days,
		DailyRate:    dailyRate,
		Subtotal:     subtotal,
		ExtrasCost:   extrasCost,
		Tax:          tax,
		Total:        subtotal.Add(extrasCost).Add(tax),
	}, nil
}

// RefundTier grants Percent of the total when cancelling at least MinDays
// before the start date.
type RefundTier struct {
	MinDays int `yaml:"min_days" json:"min_days"`
	Percent int `yaml:"percent" json:"percent"`
}

var DefaultRefundTiers = []RefundTier{
	{MinDays: 7, Percent: 100},
	{MinDays: 3, Percent: 50},
	{MinDays: 1, Percent: 25},
}

// DaysUntil counts whole days from now until t. Negative once t has passed.
func DaysUntil(now, t time.Time) int {
	d := t.Sub(now)
	days := int(d / Day)
	if d < 0 && d%Day != 0 {
		days--
	}
	return days
}

// RefundPercent picks the first tier whose threshold daysUntilStart meets.
// Tiers are evaluated from the largest threshold down.
func RefundPercent(tiers []RefundTier, daysUntilStart int) int {
	sorted := append([]RefundTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinDays > sorted[j].MinDays })
	for _, tier := range sorted {
		if daysUntilStart >= tier.MinDays {
			return tier.Percent
		}
	}
	return 0
}

// RefundAmount applies percent to total, rounded to cents.
func RefundAmount(total decimal.Decimal, percent int) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Round(2)
}

// LateDays counts whole days elapsed since end, zero if end has not passed.
func LateDays(now, end time.Time) int {
	if !now.After(end) {
		return 0
	}
	return int(now.Sub(end) / Day)
}
