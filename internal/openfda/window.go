package openfda

import (
	"fmt"
	"time"
)

// queryDateLayout is the date format openFDA expects inside range terms
const queryDateLayout = "20060102"

// Window is an inclusive range of UTC calendar days
type Window struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow applies the trailing-complete-days policy: the window ends
// yesterday (UTC) and spans daysBack days, so today's partially published
// decisions are never queried. daysBack below 1 is treated as 1.
func ComputeWindow(today time.Time, daysBack int) Window {
	if daysBack < 1 {
		daysBack = 1
	}
	y, m, d := today.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	end := midnight.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(daysBack - 1))
	return Window{Start: start, End: end}
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// StartString returns the start date formatted for a query term
func (w Window) StartString() string {
	return w.Start.Format(queryDateLayout)
}

// EndString returns the end date formatted for a query term
func (w Window) EndString() string {
	return w.End.Format(queryDateLayout)
}

func (w Window) String() string {
	return w.StartString() + ".." + w.EndString()
}

// BuildSearch assembles the openFDA search expression for one advisory
// committee over the window, e.g.
//
//	advisory_committee:radiology AND decision_date:[20240301 TO 20240301]
//
// Spaces are encoded as '+' on the wire, which is the separator openFDA documents.
func BuildSearch(committee string, w Window) string {
	return fmt.Sprintf("advisory_committee:%s AND decision_date:[%s TO %s]",
		committee, w.StartString(), w.EndString())
}
