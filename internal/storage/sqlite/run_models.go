package sqlite

import "time"

// RunRecord is one execution of the export job
type RunRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Committee     string    `json:"committee"`
	WindowStart   string    `json:"window_start"` // YYYYMMDD
	WindowEnd     string    `json:"window_end"`   // YYYYMMDD
	Search        string    `json:"search"`
	Outcome       string    `json:"outcome"`           // "ok", "empty", "failed"
	Failure       string    `json:"failure,omitempty"` // failure kind when Outcome is "failed"
	Error         string    `json:"error,omitempty"`
	RecordCount   int       `json:"record_count"`
	UpstreamTotal int64     `json:"upstream_total"`
	OutputPath    string    `json:"output_path"`
	OutputBytes   int64     `json:"output_bytes"`
}

// RunClearance is one exported row, kept with the run that produced it
type RunClearance struct {
	RunID             string `json:"run_id"`
	Position          int    `json:"position"`
	KNumber           string `json:"k_number"`
	Applicant         string `json:"applicant"`
	DeviceName        string `json:"device_name"`
	DecisionDate      string `json:"decision_date"`
	AdvisoryCommittee string `json:"advisory_committee"`
	DecisionCode      string `json:"decision_code"`
}
