package platform

// DriverProfile is the platform's view of a driver. It is an immutable
// snapshot per fetch and is never persisted directly.
type DriverProfile struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	WorkRuleID string `json:"work_rule_id"`
	WorkStatus string `json:"work_status"`
}

// Order lifecycle statuses as the platform reports them.
const (
	OrderStatusSearching    = "searching"
	OrderStatusAssigned     = "assigned"
	OrderStatusDriving      = "driving"
	OrderStatusTransporting = "transporting"
	OrderStatusComplete     = "complete"
	OrderStatusCancelled    = "cancelled"
	OrderStatusFailed       = "failed"
	OrderStatusExpired      = "expired"
)

// Order is one ride as reported by the platform for a time window.
// Timestamps stay raw strings here so one malformed value cannot fail the
// whole fetch decode; they are parsed per driver during aggregation.
type Order struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	Status         string  `json:"status"`
	BookedAt       string  `json:"booked_at"`
	StartedAt      string  `json:"started_at"`
	EndedAt        string  `json:"ended_at"`
	Price          float64 `json:"price"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Transaction is one money movement for a driver in the window.
type Transaction struct {
	DriverID string  `json:"driver_id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	EventAt  string  `json:"event_at"`
}

// WorkRule is the platform's driver grouping (commission scheme etc.),
// used only as an optional filter.
type WorkRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
