package domain

import "time"

// Run status values.
const (
	RunStatusOK      = "ok"      // completed, no errors
	RunStatusPartial = "partial" // completed with errors or stopped at the deadline
	RunStatusFailed  = "failed"  // destination calendar could not be resolved
)

// RunReport is the outcome of one reconciliation run.
type RunReport struct {
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CalendarsScanned int       `json:"calendars_scanned"`
	EventsSeen       int       `json:"events_seen"`
	Added            int       `json:"added"`
	Updated          int       `json:"updated"`
	Deleted          int       `json:"deleted"`
	Skipped          int       `json:"skipped"`
	Errors           []string  `json:"errors,omitempty"`
	Status           string    `json:"status"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
