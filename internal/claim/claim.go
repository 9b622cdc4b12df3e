// Package claim holds the FNOL data model: the claim draft that accumulates
// facts over a conversation, plus the state and product-line vocabulary shared
// by the state machine, the validation rules, and the payout engine.
package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductLine identifies which loss-module sub-flow a claim follows.
type ProductLine string

const (
	ProductAuto    ProductLine = "auto"
	ProductHome    ProductLine = "home"
	ProductMedical ProductLine = "medical"
)

// KnownProduct reports whether pl is one of the supported product lines.
func KnownProduct(pl ProductLine) bool {
	switch pl {
	case ProductAuto, ProductHome, ProductMedical:
		return true
	}
	return false
}

// State names a position in the FNOL conversation flow.
type State string

const (
	StateSafetyCheck    State = "SAFETY_CHECK"
	StateIdentityMatch  State = "IDENTITY_MATCH"
	StateIncidentCore   State = "INCIDENT_CORE"
	StateLossModule     State = "LOSS_MODULE"
	StateVehicleDriver  State = "VEHICLE_DRIVER"
	StateThirdParties   State = "THIRD_PARTIES"
	StateInjuries       State = "INJURIES"
	StateDamageEvidence State = "DAMAGE_EVIDENCE"
	StateTriage         State = "TRIAGE"
	StateClaimCreate    State = "CLAIM_CREATE"
	StateNextSteps      State = "NEXT_STEPS"
	StateHandoff        State = "HANDOFF_ESCALATION"
)

// StateOrder is the fixed traversal order used for progress computation.
// HANDOFF_ESCALATION sits outside the order; it is reachable from any state.
var StateOrder = []State{
	StateSafetyCheck,
	StateIdentityMatch,
	StateIncidentCore,
	StateLossModule,
	StateVehicleDriver,
	StateThirdParties,
	StateInjuries,
	StateDamageEvidence,
	StateTriage,
	StateClaimCreate,
	StateNextSteps,
}

// skipped lists the states a product line never visits.
var skipped = map[ProductLine][]State{
	ProductAuto: {},
	ProductHome: {StateVehicleDriver},
	ProductMedical: {
		StateVehicleDriver,
		StateThirdParties,
		StateDamageEvidence,
	},
}

// SkipsState reports whether the product line auto-transitions through st.
func SkipsState(pl ProductLine, st State) bool {
	for _, s := range skipped[pl] {
		if s == st {
			return true
		}
	}
	return false
}

// RequiredStates returns the traversal order with product-irrelevant states
// removed.
func RequiredStates(pl ProductLine) []State {
	out := make([]State, 0, len(StateOrder))
	for _, st := range StateOrder {
		if !SkipsState(pl, st) {
			out = append(out, st)
		}
	}
	return out
}

// Progress computes the percentage of required states completed. It is a pure
// function of the completed list; callers must never set progress directly.
func Progress(completed []State, pl ProductLine) int {
	total := len(RequiredStates(pl))
	if total == 0 {
		return 0
	}
	n := len(completed)
	if n > total {
		n = total
	}
	return 100 * n / total
}

// NextRequired returns the first state after current in traversal order that
// the product line requires and that is not already completed. Returns
// NEXT_STEPS when nothing remains.
func NextRequired(current State, pl ProductLine, completed []State) State {
	done := make(map[State]bool, len(completed))
	for _, st := range completed {
		done[st] = true
	}
	idx := -1
	for i, st := range StateOrder {
		if st == current {
			idx = i
			break
		}
	}
	for i := idx + 1; i < len(StateOrder); i++ {
		st := StateOrder[i]
		if SkipsState(pl, st) || done[st] {
			continue
		}
		return st
	}
	return StateNextSteps
}

// Incident holds the core loss facts every product line collects.
type Incident struct {
	LossType        string `json:"loss_type"`
	LossSubtype     string `json:"loss_subtype,omitempty"`
	Date            string `json:"date"` // ISO 8601 date
	Time            string `json:"time,omitempty"`
	TimeApproximate bool   `json:"time_approximate,omitempty"`
	Location        string `json:"location"`
	Description     string `json:"description"`
}

// Vehicle describes the insured vehicle and its driver for auto claims.
type Vehicle struct {
	YearMakeModel  string `json:"year_make_model"`
	Plate          string `json:"plate,omitempty"`
	Drivable       string `json:"drivable"` // yes, no, unknown
	DriverName     string `json:"driver_name"`
	DriverRelation string `json:"driver_relation,omitempty"`
}

// Party is another person or carrier involved in the loss.
type Party struct {
	ID      string `json:"id"`
	Details string `json:"details"`
	Unknown bool   `json:"unknown,omitempty"`
}

// Injury records one reported injury.
type Injury struct {
	ID           string `json:"id"`
	Severity     string `json:"severity"` // minor, moderate, severe, fatal
	Hospitalized bool   `json:"hospitalized,omitempty"`
}

// Damage records one damaged item with its estimated repair cost.
type Damage struct {
	ID              string          `json:"id"`
	Area            string          `json:"area"`
	Description     string          `json:"description,omitempty"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	Band            string          `json:"band,omitempty"` // minor, moderate, major, total
}

// Evidence upload status values.
const (
	EvidencePending = "pending"
	EvidenceReady   = "ready"
	EvidenceInvalid = "invalid"
)

// Evidence type values. A damage photo is the only type that gates the
// DAMAGE_EVIDENCE transition; everything else is optional.
const (
	EvidenceDamagePhoto  = "damage_photo"
	EvidencePoliceReport = "police_report"
	EvidenceRepairEst    = "repair_estimate"
)

// EvidenceRef points at an uploaded document together with the structured
// fields the evidence store extracted from it.
type EvidenceRef struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Status   string            `json:"status"`
	Entities map[string]string `json:"entities,omitempty"`
}

// Draft is the accumulating record for one loss report. It is mutated only by
// the state machine and becomes immutable once the session reaches a terminal
// state.
type Draft struct {
	ID       string      `json:"id"`
	UserID   string      `json:"user_id,omitempty"`
	PolicyID string      `json:"policy_id,omitempty"`
	Product  ProductLine `json:"product"`

	ReporterName    string `json:"reporter_name,omitempty"`
	SafetyConfirmed bool   `json:"safety_confirmed"`
	Emergency       bool   `json:"emergency,omitempty"`
	GuestMode       bool   `json:"guest_mode,omitempty"`

	Incident      Incident      `json:"incident"`
	AffectedAreas []string      `json:"affected_areas,omitempty"`
	Vehicle       *Vehicle      `json:"vehicle,omitempty"`
	ThirdParties  []Party       `json:"third_parties,omitempty"`
	Injuries      []Injury      `json:"injuries,omitempty"`
	Damages       []Damage      `json:"damages,omitempty"`
	Evidence      []EvidenceRef `json:"evidence,omitempty"`
	Notes         []string      `json:"notes,omitempty"`

	ReportedAt time.Time `json:"reported_at"`
}

// EstimatedLoss sums the estimated amounts across all recorded damages.
func (d *Draft) EstimatedLoss() decimal.Decimal {
	total := decimal.Zero
	for _, dm := range d.Damages {
		total = total.Add(dm.EstimatedAmount)
	}
	return total
}

// HasReadyEvidence reports whether at least one evidence item of the given
// type has finished extraction.
func (d *Draft) HasReadyEvidence(evType string) bool {
	for _, ev := range d.Evidence {
		if ev.Type == evType && ev.Status == EvidenceReady {
			return true
		}
	}
	return false
}

// FindEvidence returns the evidence entry with the given ID, or nil.
func (d *Draft) FindEvidence(id string) *EvidenceRef {
	for i := range d.Evidence {
		if d.Evidence[i].ID == id {
			return &d.Evidence[i]
		}
	}
	return nil
}

// HasSevereInjury reports whether any injury is severe or fatal.
func (d *Draft) HasSevereInjury() bool {
	for _, inj := range d.Injuries {
		if inj.Severity == "severe" || inj.Severity == "fatal" || inj.Hospitalized {
			return true
		}
	}
	return false
}
