package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"rentacar-backend/internal/domain"
)

// ReadCache holds short-lived availability answers and rental summaries.
// Write paths never read from it and invalidate what they touch.
type ReadCache struct {
	c               *cache.Cache
	availabilityTTL time.Duration
	summaryTTL      time.Duration
}

func NewReadCache(availabilityTTL, summaryTTL time.Duration) *ReadCache {
	return &ReadCache{
		c:               cache.New(summaryTTL, 10*time.Minute),
		availabilityTTL: availabilityTTL,
		summaryTTL:      summaryTTL,
	}
}

func availabilityKey(vehicleID string, start, end time.Time) string {
	return fmt.Sprintf("avail:%s:%d:%d", vehicleID, start.Unix(), end.Unix())
}

func summaryKey(rentalID string) string {
	return "summary:" + rentalID
}

func (rc *ReadCache) Availability(vehicleID string, start, end time.Time) (bool, bool) {
	if rc == nil {
		return false, false
	}
	v, ok := rc.c.Get(availabilityKey(vehicleID, start, end))
	if !ok {
		return false, false
	}
	return v.(bool), true
}

func (rc *ReadCache) SetAvailability(vehicleID string, start, end time.Time, available bool) {
	if rc == nil || rc.availabilityTTL <= 0 {
		return
	}
	rc.c.Set(availabilityKey(vehicleID, start, end), available, rc.availabilityTTL)
}

// Summary and SetSummary copy on the way in and out, so callers own what they
// hold.
func (rc *ReadCache) Summary(rentalID string) (*domain.RentalSummary, bool) {
	if rc == nil {
		return nil, false
	}
	v, ok := rc.c.Get(summaryKey(rentalID))
	if !ok {
		return nil, false
	}
	return v.(*domain.RentalSummary).Clone(), true
}

func (rc *ReadCache) SetSummary(rentalID string, s *domain.RentalSummary) {
	if rc == nil || rc.summaryTTL <= 0 {
		return
	}
	rc.c.Set(summaryKey(rentalID), s.Clone(), rc.summaryTTL)
}

// InvalidateRental drops the rental's summary and every availability answer
// for its vehicle.
func (rc *ReadCache) InvalidateRental(rentalID, vehicleID string) {
	if rc == nil {
		return
	}
	rc.c.Delete(summaryKey(rentalID))
	if vehicleID == "" {
		return
	}
	prefix := "avail:" + vehicleID + ":"
	for key := range rc.c.Items() {
		if strings.HasPrefix(key, prefix) {
			rc.c.Delete(key)
		}
	}
}
