package fleet

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used throughout the sync engine.
const DateLayout = "2006-01-02"

// ActivityRecordID derives the deterministic primary key for a (driver, date)
// pair, which is what makes reconciliation an upsert-by-id.
func ActivityRecordID(driverID, date string) string {
	return fmt.Sprintf("%s:%s", driverID, date)
}

// ActivityRecord is one driver's activity for one calendar day (GORM model).
// Natural key = driver id + date; re-running a sync for the same day rewrites
// the activity-derived fields in place.
type ActivityRecord struct {
	ID       string `gorm:"primaryKey;size:64"` // ActivityRecordID(driver, date)
	DriverID string `gorm:"index;size:36;not null"`
	Date     string `gorm:"index;size:10;not null"` // YYYY-MM-DD

	// Activity-derived fields, overwritten on every sync of this day.
	ActivityMinutes float64 `gorm:"not null;default:0"`
	CompletedRides  int     `gorm:"not null;default:0"`
	DistanceKm      float64 `gorm:"not null;default:0"`
	AvgSpeedKmh     float64 `gorm:"not null;default:0"`
	CashRevenue     float64 `gorm:"not null;default:0"`
	CashlessRevenue float64 `gorm:"not null;default:0"`

	// Driving-behavior sub-scores come from the telematics pipeline and may
	// be absent; the composite renormalizes over whichever are present.
	ScoreSpeed        *float64
	ScoreBraking      *float64
	ScoreAcceleration *float64
	ScoreCornering    *float64
	ScoreRegularity   *float64
	ScoreActivity     *float64

	// GlobalScore is the weighted composite over the present sub-scores.
	GlobalScore float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
