// Package rules is the per-state validation rule set: pure predicate-and-
// message functions over the collected claim facts. Each check returns every
// violation it finds so the claimant sees all problems in one round trip.
package rules

import (
	"fmt"
	"time"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/policy"
)

// Closed value sets for enumerated fields.
var (
	LossTypes = []string{
		"collision", "theft", "weather", "vandalism", "glass", "fire", "other",
	}
	InjurySeverities = []string{"minor", "moderate", "severe", "fatal"}
	DrivableValues   = []string{"yes", "no", "unknown"}
)

func inSet(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Context carries the inputs validation needs beyond the draft itself.
type Context struct {
	Now    time.Time
	Policy *policy.Policy // nil in guest mode
}

// ForState validates the facts a state is responsible for. Returns an ordered
// list of human-readable error messages; empty means valid.
func ForState(st claim.State, d *claim.Draft, vc Context) []string {
	switch st {
	case claim.StateSafetyCheck:
		return checkSafety(d)
	case claim.StateIdentityMatch:
		return checkIdentity(d)
	case claim.StateIncidentCore:
		return checkIncident(d, vc)
	case claim.StateLossModule:
		return checkLossModule(d)
	case claim.StateVehicleDriver:
		return checkVehicle(d)
	case claim.StateThirdParties:
		return checkThirdParties(d)
	case claim.StateInjuries:
		return checkInjuries(d)
	case claim.StateDamageEvidence:
		return checkDamageEvidence(d)
	}
	return nil
}

func checkSafety(d *claim.Draft) []string {
	// Emergency routing happens in the transition table; nothing to validate
	// beyond having an answer at all.
	return nil
}

func checkIdentity(d *claim.Draft) []string {
	var errs []string
	if d.ReporterName == "" {
		errs = append(errs, "Please tell us your full name.")
	}
	if !claim.KnownProduct(d.Product) {
		errs = append(errs, "Please choose the type of policy this claim is for.")
	}
	return errs
}

func checkIncident(d *claim.Draft, vc Context) []string {
	var errs []string
	inc := d.Incident

	if inc.LossType == "" {
		errs = append(errs, "Please select the type of incident.")
	} else if !inSet(inc.LossType, LossTypes) {
		errs = append(errs, fmt.Sprintf("%q is not a recognized incident type.", inc.LossType))
	}

	if inc.Date == "" {
		errs = append(errs, "Please provide the date of the incident.")
	} else if t, err := time.Parse("2006-01-02", inc.Date); err != nil {
		errs = append(errs, "The incident date is not a valid date.")
	} else {
		if t.After(vc.Now) {
			errs = append(errs, "The incident date cannot be in the future.")
		}
		if vc.Policy != nil && !vc.Policy.InEffect(t) {
			errs = append(errs, "The incident date falls outside the policy's effective period.")
		}
	}

	if len(inc.Location) < 5 {
		errs = append(errs, "Please provide a more specific incident location (street address, intersection, or landmark).")
	}
	if len(inc.Description) < 10 {
		errs = append(errs, "Please describe what happened in a bit more detail.")
	}
	return errs
}

func checkLossModule(d *claim.Draft) []string {
	var errs []string
	switch d.Product {
	case claim.ProductAuto:
		if d.Incident.LossSubtype == "" {
			errs = append(errs, "Please select the scenario that best matches your incident.")
		}
	case claim.ProductHome:
		if len(d.AffectedAreas) == 0 {
			errs = append(errs, "Please select at least one affected area of the home.")
		}
	case claim.ProductMedical:
		if d.EstimatedLoss().IsZero() {
			errs = append(errs, "Please provide the billed amount for the treatment.")
		}
	}
	return errs
}

func checkVehicle(d *claim.Draft) []string {
	var errs []string
	v := d.Vehicle
	if v == nil {
		return []string{"Please provide the insured vehicle's details."}
	}
	if v.YearMakeModel == "" {
		errs = append(errs, "Please provide the vehicle's year, make, and model.")
	}
	if v.Drivable == "" {
		errs = append(errs, "Please tell us whether the vehicle is drivable.")
	} else if !inSet(v.Drivable, DrivableValues) {
		errs = append(errs, fmt.Sprintf("%q is not a valid answer for drivability.", v.Drivable))
	}
	if v.DriverName == "" {
		errs = append(errs, "Please tell us who was driving.")
	}
	return errs
}

func checkThirdParties(d *claim.Draft) []string {
	var errs []string
	for i, p := range d.ThirdParties {
		if !p.Unknown && p.Details == "" {
			errs = append(errs, fmt.Sprintf("Please provide details for the other party (#%d).", i+1))
		}
	}
	return errs
}

func checkInjuries(d *claim.Draft) []string {
	var errs []string
	for i, inj := range d.Injuries {
		if !inSet(inj.Severity, InjurySeverities) {
			errs = append(errs, fmt.Sprintf("Injury #%d has an unrecognized severity %q.", i+1, inj.Severity))
		}
	}
	return errs
}

func checkDamageEvidence(d *claim.Draft) []string {
	var errs []string
	for i, dm := range d.Damages {
		if dm.EstimatedAmount.IsNegative() {
			errs = append(errs, fmt.Sprintf("Damage estimate #%d cannot be negative.", i+1))
		}
	}
	if !d.HasReadyEvidence(claim.EvidenceDamagePhoto) {
		errs = append(errs, "At least one photo of the damage is required before we can continue.")
	}
	return errs
}
