package fleet

import (
	"time"

	"github.com/MoovFleet/MoovFleet/internal/deadline"
)

// FleetSettings is the single-row settings table for the fleet (GORM model).
// The deadline engine reads it; only the settings screens write it.
type FleetSettings struct {
	ID uint `gorm:"primaryKey"`

	// ObjectiveMinutes overrides the configured daily activity target when > 0.
	ObjectiveMinutes int `gorm:"not null;default:0"`

	// Remittance deadline rule.
	VersementRecurrence string `gorm:"type:varchar(16);not null;default:'weekly'"` // daily / weekly / monthly
	VersementWeekday    int    `gorm:"not null;default:1"`                         // 0=Sunday .. 6=Saturday
	VersementMonthDay   int    `gorm:"not null;default:1"`                         // 1-31
	VersementCutoff     string `gorm:"size:5;not null;default:'18:00'"`            // HH:MM

	PenaltyEnabled bool    `gorm:"not null;default:false"`
	PenaltyKind    string  `gorm:"type:varchar(16);not null;default:'pourcentage'"` // pourcentage / montant_fixe
	PenaltyValue   float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DeadlineConfig converts the persisted row into the deadline engine's
// read-only config.
func (s *FleetSettings) DeadlineConfig() (deadline.Config, error) {
	hour, minute, err := deadline.ParseCutoff(s.VersementCutoff)
	if err != nil {
		return deadline.Config{}, err
	}
	return deadline.Config{
		Recurrence:     deadline.Recurrence(s.VersementRecurrence),
		AnchorWeekday:  time.Weekday(s.VersementWeekday),
		AnchorMonthDay: s.VersementMonthDay,
		CutoffHour:     hour,
		CutoffMinute:   minute,
		PenaltyEnabled: s.PenaltyEnabled,
		PenaltyKind:    deadline.PenaltyKind(s.PenaltyKind),
		PenaltyValue:   s.PenaltyValue,
	}, nil
}
