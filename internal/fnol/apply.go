package fnol

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
)

// applyAnswer parses one claimant answer against the pending prompt and
// writes it into the draft. Returns the before/after values for the audit
// trail and any parse-level validation messages; on a non-empty message list
// the draft is untouched.
func applyAnswer(d *claim.Draft, p *prompt, in Input) (before, after string, errs []string) {
	raw := strings.TrimSpace(in.Value)
	skipped := p.optional && (raw == "" || strings.EqualFold(raw, "skip"))

	switch p.field {
	case "safety.confirmed":
		ok, err := parseYesNo(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = fmt.Sprintf("%t", d.SafetyConfirmed)
		d.SafetyConfirmed = ok
		if !ok {
			d.Emergency = true
		}
		return before, fmt.Sprintf("%t", ok), nil

	case "identity.policy_number":
		before = d.PolicyID
		if skipped {
			d.GuestMode = true
			return before, "", nil
		}
		d.PolicyID = raw
		return before, raw, nil

	case "identity.reporter_name":
		if raw == "" {
			return "", "", []string{"Please tell us your full name."}
		}
		before = d.ReporterName
		d.ReporterName = raw
		return before, raw, nil

	case "identity.product":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = string(d.Product)
		d.Product = claim.ProductLine(v)
		return before, v, nil

	case "incident.loss_type":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = d.Incident.LossType
		d.Incident.LossType = v
		return before, v, nil

	case "incident.date":
		iso, err := parseDate(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = d.Incident.Date
		d.Incident.Date = iso
		return before, iso, nil

	case "incident.time":
		before = d.Incident.Time
		if skipped {
			d.Incident.Time = ""
			d.Incident.TimeApproximate = true
			return before, "", nil
		}
		hm, approx, err := parseClock(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		d.Incident.Time = hm
		d.Incident.TimeApproximate = approx
		return before, hm, nil

	case "incident.location":
		if len(raw) < 5 {
			return "", "", []string{"Please provide a more specific incident location (street address, intersection, or landmark)."}
		}
		before = d.Incident.Location
		d.Incident.Location = raw
		return before, raw, nil

	case "incident.description":
		if len(raw) < 10 {
			return "", "", []string{"Please describe what happened in a bit more detail."}
		}
		before = d.Incident.Description
		d.Incident.Description = raw
		return before, raw, nil

	case "loss.subtype":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = d.Incident.LossSubtype
		d.Incident.LossSubtype = v
		return before, v, nil

	case "loss.affected_areas":
		values, err := matchOptions(in, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = strings.Join(d.AffectedAreas, ",")
		d.AffectedAreas = values
		return before, strings.Join(values, ","), nil

	case "loss.billed_amount":
		amount, err := parseAmount(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = d.EstimatedLoss().String()
		setTotalEstimate(d, "medical", amount)
		return before, amount.String(), nil

	case "vehicle.year_make_model":
		if raw == "" {
			return "", "", []string{"Please provide the vehicle's year, make, and model."}
		}
		ensureVehicle(d)
		before = d.Vehicle.YearMakeModel
		d.Vehicle.YearMakeModel = raw
		return before, raw, nil

	case "vehicle.plate":
		ensureVehicle(d)
		before = d.Vehicle.Plate
		if skipped {
			return before, "", nil
		}
		d.Vehicle.Plate = strings.ToUpper(raw)
		return before, d.Vehicle.Plate, nil

	case "vehicle.drivable":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		ensureVehicle(d)
		before = d.Vehicle.Drivable
		d.Vehicle.Drivable = v
		return before, v, nil

	case "vehicle.driver_name":
		if raw == "" {
			return "", "", []string{"Please tell us who was driving."}
		}
		ensureVehicle(d)
		before = d.Vehicle.DriverName
		d.Vehicle.DriverName = raw
		return before, raw, nil

	case "third_parties.any":
		ok, err := parseYesNo(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = fmt.Sprintf("%d", len(d.ThirdParties))
		if ok && len(d.ThirdParties) == 0 {
			d.ThirdParties = append(d.ThirdParties, claim.Party{ID: uuid.NewString()})
		}
		if !ok {
			d.ThirdParties = nil
		}
		return before, fmt.Sprintf("%t", ok), nil

	case "third_parties.details":
		if raw == "" {
			return "", "", []string{"Please provide details for the other party, or say \"unknown\"."}
		}
		party := &d.ThirdParties[0]
		before = party.Details
		if strings.EqualFold(raw, "unknown") {
			party.Unknown = true
			return before, "unknown", nil
		}
		party.Details = raw
		return before, raw, nil

	case "injuries.any":
		ok, err := parseYesNo(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = fmt.Sprintf("%d", len(d.Injuries))
		if ok && len(d.Injuries) == 0 {
			d.Injuries = append(d.Injuries, claim.Injury{ID: uuid.NewString()})
		}
		if !ok {
			d.Injuries = nil
		}
		return before, fmt.Sprintf("%t", ok), nil

	case "injuries.severity":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		inj := &d.Injuries[0]
		before = inj.Severity
		inj.Severity = v
		return before, v, nil

	case "damage.areas":
		values, err := matchOptions(in, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = fmt.Sprintf("%d areas", len(d.Damages))
		setDamageAreas(d, values)
		return before, strings.Join(values, ","), nil

	case "damage.description":
		if len(raw) < 5 {
			return "", "", []string{"Please describe the damage in a bit more detail."}
		}
		dm := primaryDamage(d, "property")
		before = dm.Description
		dm.Description = raw
		return before, raw, nil

	case "damage.amount":
		before = d.EstimatedLoss().String()
		if skipped {
			return before, "", nil
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		dm := primaryDamage(d, damageAreaFor(d))
		dm.EstimatedAmount = amount
		dm.Band = ""
		return before, amount.String(), nil

	case "damage.band":
		v, err := matchOption(raw, p.options)
		if err != nil {
			return "", "", []string{err.Error()}
		}
		before = d.EstimatedLoss().String()
		dm := primaryDamage(d, damageAreaFor(d))
		dm.Band = v
		dm.EstimatedAmount = estimateBands[v]
		return before, dm.EstimatedAmount.String(), nil

	case "evidence.damage_photo":
		// The upload itself arrives through the evidence endpoint; the typed
		// answer only confirms the claimant is done uploading.
		if !strings.EqualFold(raw, "done") {
			return "", "", []string{"Upload a photo of the damage, then say \"done\"."}
		}
		if !d.HasReadyEvidence(claim.EvidenceDamagePhoto) {
			return "", "", []string{"At least one photo of the damage is required before we can continue."}
		}
		return "", "done", nil
	}

	return "", "", []string{fmt.Sprintf("I can't handle an answer for %q here.", p.field)}
}

func ensureVehicle(d *claim.Draft) {
	if d.Vehicle == nil {
		d.Vehicle = &claim.Vehicle{}
	}
}

// primaryDamage returns the damage entry that carries the claim's total
// estimate, creating it when none exists.
func primaryDamage(d *claim.Draft, area string) *claim.Damage {
	if len(d.Damages) == 0 {
		d.Damages = append(d.Damages, claim.Damage{ID: uuid.NewString(), Area: area})
	}
	return &d.Damages[0]
}

func damageAreaFor(d *claim.Draft) string {
	switch d.Product {
	case claim.ProductHome:
		return "property"
	case claim.ProductMedical:
		return "medical"
	}
	return "vehicle"
}

// setDamageAreas rebuilds the damage list from the selected areas, keeping
// any estimate already on the first entry.
func setDamageAreas(d *claim.Draft, areas []string) {
	keep := decimal.Zero
	band := ""
	if len(d.Damages) > 0 {
		keep = d.Damages[0].EstimatedAmount
		band = d.Damages[0].Band
	}
	d.Damages = d.Damages[:0]
	for i, area := range areas {
		dm := claim.Damage{ID: uuid.NewString(), Area: area}
		if i == 0 {
			dm.EstimatedAmount = keep
			dm.Band = band
		}
		d.Damages = append(d.Damages, dm)
	}
}

func setTotalEstimate(d *claim.Draft, area string, amount decimal.Decimal) {
	dm := primaryDamage(d, area)
	dm.EstimatedAmount = amount
	dm.Band = ""
}

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "sure": true,
	"correct": true, "true": true, "ok": true, "okay": true,
}

var noWords = map[string]bool{
	"no": true, "n": true, "nope": true, "none": true, "false": true,
}

func parseYesNo(raw string) (bool, error) {
	w := strings.ToLower(strings.TrimSpace(raw))
	if yesWords[w] {
		return true, nil
	}
	if noWords[w] {
		return false, nil
	}
	return false, fmt.Errorf("please answer yes or no")
}

var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

// parseDate normalizes a claimant-typed date to ISO 8601.
func parseDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("I couldn't read that date; please use a format like 2026-08-20")
}

var clockFormats = []string{"15:04", "3:04 PM", "3:04pm", "15.04"}

// parseClock normalizes a time of day to HH:MM. A bare hour like "3 PM" is
// accepted and flagged approximate.
func parseClock(raw string) (hm string, approximate bool, err error) {
	s := strings.TrimSpace(raw)
	for _, f := range clockFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.Format("15:04"), false, nil
		}
	}
	for _, f := range []string{"3 PM", "3PM", "3pm", "15"} {
		if t, err := time.Parse(f, s); err == nil {
			return t.Format("15:04"), true, nil
		}
	}
	return "", false, fmt.Errorf("I couldn't read that time; please use a format like 14:30 or 2:30 PM")
}

func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	amount, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("I couldn't read that amount; please give a dollar figure like 3000 or $3,000")
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("the amount cannot be negative")
	}
	return amount, nil
}

func matchOption(raw string, options []Option) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, o := range options {
		if s == strings.ToLower(o.Value) || s == strings.ToLower(o.Label) {
			return o.Value, nil
		}
	}
	values := make([]string, 0, len(options))
	for _, o := range options {
		values = append(values, o.Value)
	}
	return "", fmt.Errorf("please choose one of: %s", strings.Join(values, ", "))
}

func matchOptions(in Input, options []Option) ([]string, error) {
	raw := in.Values
	if len(raw) == 0 && in.Value != "" {
		raw = strings.Split(in.Value, ",")
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("please select at least one option")
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		v, err := matchOption(r, options)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}
