package openfda

import "time"

// ClearanceRecord holds the fields of a 510(k) result the export uses.
// Fields missing from the payload are left empty.
type ClearanceRecord struct {
	KNumber           string `json:"k_number"`
	Applicant         string `json:"applicant"`
	DeviceName        string `json:"device_name"`
	DecisionDate      string `json:"decision_date"`
	AdvisoryCommittee string `json:"advisory_committee"`
	DecisionCode      string `json:"decision_code"`
}

// Outcome classifies a fetch so a degraded run can be told apart from a day
// with no clearances; both produce an empty CSV.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"     // upstream answered with at least one record
	OutcomeEmpty  Outcome = "empty"  // upstream answered, nothing matched
	OutcomeFailed Outcome = "failed" // transport, status or parse failure was absorbed
)

// FetchResult is what the client hands to the writer
type FetchResult struct {
	Window  Window
	Search  string
	Records []ClearanceRecord
	Outcome Outcome

	// Total is meta.results.total as reported upstream, 0 when absent
	Total int64

	// Err is the absorbed failure when Outcome is OutcomeFailed
	Err error

	Duration time.Duration
}

// Truncated reports whether upstream had more matches than were returned
func (r *FetchResult) Truncated() bool {
	return r.Total > int64(len(r.Records))
}
