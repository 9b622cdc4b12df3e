package reconcile

import (
	"time"

	"github.com/claimflow/internal/claim"
)

// EvaluateStatement checks the internal consistency of the claimant-provided
// facts. Each flag subtracts from a confidence that starts at 1.0; the
// penalties and their order are fixed so the score is reproducible.
func EvaluateStatement(d *claim.Draft, now time.Time) StatementFinding {
	conf := 1.0
	var flags []string

	flag := func(name string, penalty float64) {
		flags = append(flags, name)
		conf -= penalty
	}

	if t, err := time.Parse("2006-01-02", d.Incident.Date); err != nil {
		flag("unparseable_incident_date", 0.3)
	} else {
		reported := d.ReportedAt
		if reported.IsZero() {
			reported = now
		}
		// An incident cannot postdate the report.
		if t.After(reported) {
			flag("incident_after_report", 0.3)
		}
	}

	if len(d.Incident.Location) < 5 {
		flag("missing_location", 0.2)
	}
	if len(d.Incident.Description) < 20 {
		flag("trivial_description", 0.1)
	}
	if d.EstimatedLoss().IsZero() {
		flag("no_loss_amount", 0.2)
	}
	if d.GuestMode {
		flag("guest_mode", 0.1)
	}
	if d.Product == claim.ProductAuto && d.Vehicle == nil {
		flag("missing_vehicle", 0.2)
	}

	if conf < 0 {
		conf = 0
	}
	return StatementFinding{Confidence: conf, Flags: flags}
}
