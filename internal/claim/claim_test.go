package claim

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequiredStatesPerProduct(t *testing.T) {
	assert.Len(t, RequiredStates(ProductAuto), 11)
	assert.Len(t, RequiredStates(ProductHome), 10)
	assert.Len(t, RequiredStates(ProductMedical), 8)

	assert.NotContains(t, RequiredStates(ProductHome), StateVehicleDriver)
	assert.NotContains(t, RequiredStates(ProductMedical), StateThirdParties)
	assert.NotContains(t, RequiredStates(ProductMedical), StateDamageEvidence)
	assert.Contains(t, RequiredStates(ProductMedical), StateInjuries)
}

func TestSkipsState(t *testing.T) {
	assert.False(t, SkipsState(ProductAuto, StateVehicleDriver))
	assert.True(t, SkipsState(ProductHome, StateVehicleDriver))
	assert.True(t, SkipsState(ProductMedical, StateDamageEvidence))
	assert.False(t, SkipsState(ProductMedical, StateIncidentCore))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(nil, ProductAuto))

	done := []State{StateSafetyCheck, StateIdentityMatch}
	assert.Equal(t, 18, Progress(done, ProductAuto))    // 2 of 11
	assert.Equal(t, 20, Progress(done, ProductHome))    // 2 of 10
	assert.Equal(t, 25, Progress(done, ProductMedical)) // 2 of 8

	assert.Equal(t, 100, Progress(RequiredStates(ProductAuto), ProductAuto))
}

func TestNextRequired(t *testing.T) {
	tests := []struct {
		name      string
		current   State
		product   ProductLine
		completed []State
		want      State
	}{
		{"auto walks every state", StateLossModule, ProductAuto, nil, StateVehicleDriver},
		{"home skips vehicle", StateLossModule, ProductHome, nil, StateThirdParties},
		{"medical skips to injuries", StateLossModule, ProductMedical, nil, StateInjuries},
		{"medical skips damage evidence", StateInjuries, ProductMedical, nil, StateTriage},
		{
			"completed states are passed over",
			StateIncidentCore, ProductAuto,
			[]State{StateLossModule, StateVehicleDriver},
			StateThirdParties,
		},
		{
			"re-entered state resumes at triage",
			StateIncidentCore, ProductAuto,
			[]State{
				StateSafetyCheck, StateIdentityMatch, StateIncidentCore, StateLossModule,
				StateVehicleDriver, StateThirdParties, StateInjuries, StateDamageEvidence,
			},
			StateTriage,
		},
		{"nothing left", StateClaimCreate, ProductAuto, RequiredStates(ProductAuto), StateNextSteps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRequired(tt.current, tt.product, tt.completed))
		})
	}
}

func TestEstimatedLoss(t *testing.T) {
	d := &Draft{Damages: []Damage{
		{Area: "front", EstimatedAmount: decimal.NewFromInt(1200)},
		{Area: "glass", EstimatedAmount: decimal.NewFromInt(300)},
	}}
	assert.True(t, d.EstimatedLoss().Equal(decimal.NewFromInt(1500)))
	assert.True(t, (&Draft{}).EstimatedLoss().IsZero())
}

func TestHasReadyEvidence(t *testing.T) {
	d := &Draft{Evidence: []EvidenceRef{
		{ID: "ev-1", Type: EvidenceDamagePhoto, Status: EvidencePending},
		{ID: "ev-2", Type: EvidencePoliceReport, Status: EvidenceReady},
	}}
	assert.False(t, d.HasReadyEvidence(EvidenceDamagePhoto))
	assert.True(t, d.HasReadyEvidence(EvidencePoliceReport))

	d.Evidence[0].Status = EvidenceReady
	assert.True(t, d.HasReadyEvidence(EvidenceDamagePhoto))
}

func TestHasSevereInjury(t *testing.T) {
	d := &Draft{Injuries: []Injury{{ID: "i1", Severity: "minor"}}}
	assert.False(t, d.HasSevereInjury())

	d.Injuries = append(d.Injuries, Injury{ID: "i2", Severity: "severe"})
	assert.True(t, d.HasSevereInjury())

	hospitalized := &Draft{Injuries: []Injury{{ID: "i1", Severity: "minor", Hospitalized: true}}}
	assert.True(t, hospitalized.HasSevereInjury())
}
