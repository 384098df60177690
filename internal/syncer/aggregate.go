package syncer

import (
	"errors"
	"fmt"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/platform"
)

// ErrNoCompletedActivity marks a driver with zero completed orders for the
// day. The orchestrator records it as a skip, not an error.
var ErrNoCompletedActivity = errors.New("no completed activity")

// maxOrderDuration is the plausibility ceiling for a single ride. Orders
// above it are bad platform data and are discarded from all accumulation.
const maxOrderDuration = 8 * time.Hour

// Revenue partitioning. Categories outside both sets are ignored on purpose:
// a new platform category must be classified here before it is counted.
var cashCategories = map[string]bool{
	"cash":           true,
	"cash_collected": true,
}

var cashlessCategories = map[string]bool{
	"card":         true,
	"e_wallet":     true,
	"mobile_money": true,
}

// Metrics is one driver's raw activity for the day.
type Metrics struct {
	ActivityMinutes float64
	CompletedRides  int
	DistanceKm      float64
	AvgSpeedKmh     float64
	CashRevenue     float64
	CashlessRevenue float64
	OrdersSeen      int
}

// Aggregate computes a driver's metrics from the day's orders and
// transactions. Only completed orders contribute duration and distance.
func Aggregate(orders []platform.Order, transactions []platform.Transaction, externalDriverID string) (Metrics, error) {
	var m Metrics

	for _, o := range orders {
		if o.DriverID != externalDriverID {
			continue
		}
		m.OrdersSeen++
		if o.Status != platform.OrderStatusComplete {
			continue
		}

		started, err := parseOrderTime(o.StartedAt)
		if err != nil {
			return Metrics{}, fmt.Errorf("order %s: bad started_at: %w", o.ID, err)
		}
		ended, err := parseOrderTime(o.EndedAt)
		if err != nil {
			return Metrics{}, fmt.Errorf("order %s: bad ended_at: %w", o.ID, err)
		}

		duration := ended.Sub(started)
		if duration <= 0 || duration > maxOrderDuration {
			// bad data, contributes nothing rather than being capped
			continue
		}

		m.CompletedRides++
		m.ActivityMinutes += duration.Minutes()
		m.DistanceKm += o.DistanceMeters / 1000
	}

	if m.CompletedRides == 0 {
		return Metrics{}, ErrNoCompletedActivity
	}

	if m.ActivityMinutes > 0 {
		m.AvgSpeedKmh = m.DistanceKm / (m.ActivityMinutes / 60)
	}

	for _, t := range transactions {
		if t.DriverID != externalDriverID {
			continue
		}
		switch {
		case cashCategories[t.Category]:
			m.CashRevenue += t.Amount
		case cashlessCategories[t.Category]:
			m.CashlessRevenue += t.Amount
		}
	}

	return m, nil
}

func parseOrderTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Parse(time.RFC3339, s)
}
