package fnol

import (
	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
)

// prompt is one scripted question within a state. Prompts run in declared
// order; when is evaluated against the live draft so answered or irrelevant
// questions are skipped.
type prompt struct {
	field    string
	kind     InputKind
	question string
	options  []Option
	optional bool
	when     func(d *claim.Draft) bool
}

func (p *prompt) pending() PendingInput {
	return PendingInput{
		Kind:     p.kind,
		Field:    p.field,
		Question: p.question,
		Options:  p.options,
		Optional: p.optional,
	}
}

func opts(values ...string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

var lossTypeOptions = []Option{
	{Value: "collision", Label: "Collision or crash"},
	{Value: "theft", Label: "Theft or break-in"},
	{Value: "weather", Label: "Weather or natural event"},
	{Value: "vandalism", Label: "Vandalism"},
	{Value: "glass", Label: "Glass only"},
	{Value: "fire", Label: "Fire"},
	{Value: "other", Label: "Something else"},
}

var autoSubtypeOptions = []Option{
	{Value: "single_vehicle", Label: "Only my vehicle was involved"},
	{Value: "multi_vehicle", Label: "Another vehicle was involved"},
	{Value: "parked_hit", Label: "My parked car was hit"},
	{Value: "theft_vandalism", Label: "Theft or vandalism"},
	{Value: "weather_damage", Label: "Weather damage"},
	{Value: "glass_only", Label: "Glass damage only"},
}

var homeAreaOptions = opts(
	"roof", "kitchen", "bathroom", "basement", "living_area",
	"bedroom", "exterior", "garage", "other",
)

var vehicleAreaOptions = opts(
	"front", "rear", "driver_side", "passenger_side",
	"roof", "glass", "interior", "mechanical",
)

// estimateBands maps a rough damage band to a working dollar estimate for
// claimants who cannot give a number. "unknown" stays zero and lowers the
// statement confidence instead.
var estimateBands = map[string]decimal.Decimal{
	"unknown":  decimal.Zero,
	"minor":    decimal.NewFromInt(500),
	"moderate": decimal.NewFromInt(3000),
	"major":    decimal.NewFromInt(10000),
	"total":    decimal.NewFromInt(20000),
}

var bandOptions = []Option{
	{Value: "minor", Label: "Minor (scratches, small dents)"},
	{Value: "moderate", Label: "Moderate (repairable damage)"},
	{Value: "major", Label: "Major (significant structural damage)"},
	{Value: "total", Label: "Total loss"},
	{Value: "unknown", Label: "I'm not sure"},
}

func isAuto(d *claim.Draft) bool    { return d.Product == claim.ProductAuto }
func isHome(d *claim.Draft) bool    { return d.Product == claim.ProductHome }
func isMedical(d *claim.Draft) bool { return d.Product == claim.ProductMedical }

// scripts is the per-state question script. The machine asks the first
// applicable prompt, applies each answer to the draft, and completes the state
// when the script is exhausted.
var scripts = map[claim.State][]prompt{
	claim.StateSafetyCheck: {
		{
			field:    "safety.confirmed",
			kind:     KindYesNo,
			question: "Before we begin: is everyone safe, and are you out of immediate danger?",
		},
	},
	claim.StateIdentityMatch: {
		{
			field:    "identity.policy_number",
			kind:     KindText,
			question: "What is your policy number? You can say \"skip\" to continue as a guest.",
			optional: true,
			when:     func(d *claim.Draft) bool { return d.PolicyID == "" && !d.GuestMode },
		},
		{
			field:    "identity.reporter_name",
			kind:     KindText,
			question: "What is your full name?",
		},
		{
			field:    "identity.product",
			kind:     KindSelect,
			question: "What type of policy is this claim for?",
			options:  opts("auto", "home", "medical"),
			when:     func(d *claim.Draft) bool { return !claim.KnownProduct(d.Product) },
		},
	},
	claim.StateIncidentCore: {
		{
			field:    "incident.loss_type",
			kind:     KindSelect,
			question: "What kind of incident are you reporting?",
			options:  lossTypeOptions,
		},
		{
			field:    "incident.date",
			kind:     KindDate,
			question: "What date did the incident happen? (for example, 2026-08-20)",
		},
		{
			field:    "incident.time",
			kind:     KindTime,
			question: "Around what time did it happen? You can say \"skip\" if you're not sure.",
			optional: true,
		},
		{
			field:    "incident.location",
			kind:     KindText,
			question: "Where did the incident happen? A street address, intersection, or landmark works.",
		},
		{
			field:    "incident.description",
			kind:     KindText,
			question: "In your own words, what happened?",
		},
	},
	claim.StateLossModule: {
		{
			field:    "loss.subtype",
			kind:     KindSelect,
			question: "Which of these best matches your incident?",
			options:  autoSubtypeOptions,
			when:     isAuto,
		},
		{
			field:    "loss.affected_areas",
			kind:     KindMultiSelect,
			question: "Which areas of the home were affected? Select all that apply.",
			options:  homeAreaOptions,
			when:     isHome,
		},
		{
			field:    "loss.billed_amount",
			kind:     KindAmount,
			question: "What was the billed amount for the treatment?",
			when:     isMedical,
		},
	},
	claim.StateVehicleDriver: {
		{
			field:    "vehicle.year_make_model",
			kind:     KindText,
			question: "What is the vehicle's year, make, and model?",
		},
		{
			field:    "vehicle.plate",
			kind:     KindText,
			question: "What is the license plate? You can say \"skip\".",
			optional: true,
		},
		{
			field:    "vehicle.drivable",
			kind:     KindSelect,
			question: "Is the vehicle drivable?",
			options:  opts("yes", "no", "unknown"),
		},
		{
			field:    "vehicle.driver_name",
			kind:     KindText,
			question: "Who was driving at the time?",
		},
	},
	claim.StateThirdParties: {
		{
			field:    "third_parties.any",
			kind:     KindYesNo,
			question: "Was anyone else involved, such as another driver or a neighbor?",
		},
		{
			field:    "third_parties.details",
			kind:     KindText,
			question: "Please share what you know about the other party: name, contact, insurer, or \"unknown\".",
			when: func(d *claim.Draft) bool {
				return len(d.ThirdParties) > 0 && d.ThirdParties[0].Details == "" && !d.ThirdParties[0].Unknown
			},
		},
	},
	claim.StateInjuries: {
		{
			field:    "injuries.any",
			kind:     KindYesNo,
			question: "Was anyone injured?",
		},
		{
			field:    "injuries.severity",
			kind:     KindSelect,
			question: "How serious is the injury?",
			options:  opts("minor", "moderate", "severe", "fatal"),
			when: func(d *claim.Draft) bool {
				return len(d.Injuries) > 0 && d.Injuries[0].Severity == ""
			},
		},
	},
	claim.StateDamageEvidence: {
		{
			field:    "damage.areas",
			kind:     KindMultiSelect,
			question: "Which parts of the vehicle are damaged? Select all that apply.",
			options:  vehicleAreaOptions,
			when:     isAuto,
		},
		{
			field:    "damage.description",
			kind:     KindText,
			question: "Briefly describe the damage to the property.",
			when:     isHome,
		},
		{
			field:    "damage.amount",
			kind:     KindAmount,
			question: "What is your best estimate of the repair cost in dollars? Say \"skip\" if you don't know.",
			optional: true,
		},
		{
			field:    "damage.band",
			kind:     KindSelect,
			question: "No problem. Roughly how bad is the damage?",
			options:  bandOptions,
			when:     func(d *claim.Draft) bool { return d.EstimatedLoss().IsZero() },
		},
		{
			field:    "evidence.damage_photo",
			kind:     KindPhoto,
			question: "Please upload at least one photo of the damage, then say \"done\".",
		},
	},
}

// firstPrompt returns the first applicable prompt for a state, or nil when
// the state asks nothing.
func firstPrompt(st claim.State, d *claim.Draft) *prompt {
	return promptFrom(st, d, 0)
}

// promptAfter returns the next applicable prompt following the named field.
func promptAfter(st claim.State, d *claim.Draft, field string) *prompt {
	script := scripts[st]
	for i := range script {
		if script[i].field == field {
			return promptFrom(st, d, i+1)
		}
	}
	return nil
}

// promptFor returns the prompt that owns a field within a state, regardless
// of its when predicate. Used when reconciliation routes a disputed field
// back to its owning state.
func promptFor(st claim.State, field string) *prompt {
	script := scripts[st]
	for i := range script {
		if script[i].field == field {
			return &script[i]
		}
	}
	return nil
}

func promptFrom(st claim.State, d *claim.Draft, idx int) *prompt {
	script := scripts[st]
	for i := idx; i < len(script); i++ {
		p := &script[i]
		if p.when == nil || p.when(d) {
			return p
		}
	}
	return nil
}
