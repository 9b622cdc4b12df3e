package reconcile

import (
	"fmt"

	"github.com/claimflow/internal/claim"
)

// Supervise is the deterministic decision function over the two evaluators'
// findings. The tie-break is always conservative: escalate over
// request_more_info over approve; a claim is never auto-approved on
// ambiguous evidence.
func Supervise(d *claim.Draft, stmt StatementFinding, docs DocumentFinding, th Thresholds) Verdict {
	v := Verdict{Statement: stmt, Documents: docs}

	if stmt.Confidence < th.ConfidenceThreshold {
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf(
			"Statement confidence %.2f is below the %.2f threshold (flags: %v).",
			stmt.Confidence, th.ConfidenceThreshold, stmt.Flags)
		return v
	}
	if docs.Confidence < th.ConfidenceThreshold {
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf(
			"Document confidence %.2f is below the %.2f threshold.",
			docs.Confidence, th.ConfidenceThreshold)
		return v
	}
	// One follow-up question per pass: dispute the highest-severity
	// discrepancy and let the re-answer trigger a fresh evaluation of the
	// rest. A field that conflicts again escalates through the caller's
	// dispute ledger.
	if len(docs.Discrepancies) > 0 {
		disc := docs.Discrepancies[0]
		for _, cand := range docs.Discrepancies {
			if cand.Severity == SeverityHigh {
				disc = cand
				break
			}
		}
		v.Decision = DecisionRequestMoreInfo
		v.Reason = disc.Detail
		v.TargetField = disc.Field
		v.FollowUp = followUpFor(disc)
		return v
	}

	claimed := d.EstimatedLoss()
	if claimed.GreaterThan(th.AutoApprovalLimit) {
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf(
			"Claimed amount $%s exceeds the $%s auto-approval limit.",
			claimed.StringFixed(2), th.AutoApprovalLimit.StringFixed(2))
		return v
	}

	v.Decision = DecisionApprove
	v.Reason = "Statement and documents agree; amount within auto-approval limit."
	return v
}

func followUpFor(disc Discrepancy) string {
	switch disc.Field {
	case FieldIncidentDate:
		return "Your documents show a different incident date than the one you reported. Which date is correct?"
	case FieldIncidentLocation:
		return "Your documents show a different incident location. Where exactly did the incident occur?"
	case FieldDamageAmount:
		return "Your documents show a different damage amount than your estimate. What is your best estimate of the total damage?"
	}
	return "We found a detail in your documents that doesn't match your report. Could you clarify?"
}
