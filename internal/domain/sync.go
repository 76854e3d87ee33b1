package domain

import "time"

// SyncItem identifies one subproject to pull from SAP.
type SyncItem struct {
	ProjectID    int64  `json:"projectId"`
	SubProjectID string `json:"subProjectId"`
}

// Outcome is the tag of an ItemResult.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// ItemResult is the result of syncing one subproject. Err is set only when
// Outcome is OutcomeFailed.
type ItemResult struct {
	SubProjectID string
	Outcome      Outcome
	Err          error
}

// Message renders the error line reported to callers.
func (r ItemResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.SubProjectID + ": " + r.Err.Error()
}

// BatchResult summarizes a manual sync.
type BatchResult struct {
	RunID    string   `json:"runId"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// ResyncResult summarizes a scheduled full resync.
type ResyncResult struct {
	RunID   string   `json:"runId"`
	Synced  int      `json:"synced"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Sync triggers.
const (
	TriggerManual = "manual"
	TriggerCron   = "cron"
)

// Run statuses.
const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// SyncRun records one invocation of the sync subsystem.
type SyncRun struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	ActorID    string     `json:"actor_id"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Imported   int        `json:"imported"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

type SyncRunItem struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	SubProjectID string    `json:"subproject_id"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error"`
	CreatedAt    time.Time `json:"created_at"`
}

// RateDecision is the outcome of a cooldown check.
type RateDecision struct {
	Allowed     bool `json:"allowed"`
	WaitMinutes int  `json:"waitMinutes,omitempty"`
}

// Actor is an authenticated user of the HTTP surface.
type Actor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
