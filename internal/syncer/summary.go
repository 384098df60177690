package syncer

import "time"

// maxUnmatchedSample bounds the unmatched list carried in a summary so a
// badly mismatched roster cannot balloon the response.
const maxUnmatchedSample = 30

// OutcomeStatus classifies one driver's result in a run.
type OutcomeStatus string

const (
	OutcomeOK    OutcomeStatus = "ok"
	OutcomeSkip  OutcomeStatus = "skip"
	OutcomeError OutcomeStatus = "error"
)

// DriverOutcome is one matched driver's result.
type DriverOutcome struct {
	DriverID   string        `json:"driver_id"`
	ExternalID string        `json:"external_id"`
	Status     OutcomeStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Created    bool          `json:"created,omitempty"`
}

// UnmatchedDriver identifies an external profile no tier could pair, for
// operator diagnosis.
type UnmatchedDriver struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
}

// Summary is the structured result of one sync run. It is returned to the
// caller (API response or log) and never persisted.
type Summary struct {
	RunID                 string            `json:"run_id"`
	Date                  string            `json:"date"`
	ExternalDrivers       int               `json:"external_drivers"`
	InternalDrivers       int               `json:"internal_drivers"`
	Matched               int               `json:"matched"`
	MatchMethods          map[string]int    `json:"match_methods"`
	Unmatched             []UnmatchedDriver `json:"unmatched"` // bounded sample
	UnmatchedTotal        int               `json:"unmatched_total"`
	Outcomes              []DriverOutcome   `json:"outcomes"`
	RecordsCreated        int               `json:"records_created"`
	RecordsUpdated        int               `json:"records_updated"`
	OrdersProcessed       int               `json:"orders_processed"`
	TransactionsProcessed int               `json:"transactions_processed"`
	StartedAt             time.Time         `json:"started_at"`
	FinishedAt            time.Time         `json:"finished_at"`
}
