package fleet

import "time"

// Driver status values.
const (
	DriverStatusActive   = "active"
	DriverStatusInactive = "inactive"
)

// Driver is the fleet's own person record (GORM model). The sync engine only
// ever writes the external link and the denormalized latest score; everything
// else belongs to the management screens.
type Driver struct {
	ID        string `gorm:"primaryKey;size:36"`
	FirstName string `gorm:"size:64"`
	LastName  string `gorm:"size:64"`
	Phone     string `gorm:"index;size:32"`
	Status    string `gorm:"type:varchar(16);index;not null"` // active / inactive

	// ExternalDriverID links to the platform's driver profile. Written once
	// on first successful match, then treated as authoritative.
	ExternalDriverID string `gorm:"index;size:64"`

	// GlobalScore is the latest composite score, denormalized from the most
	// recent activity record.
	GlobalScore float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
