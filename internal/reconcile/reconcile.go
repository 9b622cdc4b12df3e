// Package reconcile cross-checks the claimant's statements against
// document-derived facts before a claim can be approved. Two evaluators run
// independently and a deterministic supervisor converges their findings on
// one of approve, request_more_info, or escalate.
package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/claimflow/internal/claim"
)

// Decision is the supervisor's final call.
type Decision string

const (
	DecisionApprove         Decision = "approve"
	DecisionRequestMoreInfo Decision = "request_more_info"
	DecisionEscalate        Decision = "escalate"
)

// Severity of a discrepancy. The supervisor disputes the highest-severity
// discrepancy first when choosing its follow-up question.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// Discrepancy is one mismatch between the claimant's statement and an
// extracted document field.
type Discrepancy struct {
	Field    string   `json:"field"` // draft field, e.g. "incident.date"
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// StatementFinding is the statement evaluator's output.
type StatementFinding struct {
	Confidence float64  `json:"confidence"` // in [0,1]
	Flags      []string `json:"flags,omitempty"`
}

// DocumentFinding is the document evaluator's output.
type DocumentFinding struct {
	Confidence    float64       `json:"confidence"` // in [0,1]
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// Thresholds are the admin-configured supervisor inputs.
type Thresholds struct {
	ConfidenceThreshold float64         // minimum evaluator confidence
	AutoApprovalLimit   decimal.Decimal // maximum claim amount for auto-approval
	DateToleranceDays   int             // allowed statement/document date drift
	AmountTolerancePct  float64         // allowed statement/document amount drift
}

// DefaultThresholds mirrors the platform's shipped admin settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfidenceThreshold: 0.7,
		AutoApprovalLimit:   decimal.NewFromInt(5000),
		DateToleranceDays:   1,
		AmountTolerancePct:  20,
	}
}

// Verdict is the protocol's result. Only Reason outlives the session turn;
// the evaluator findings are informational.
type Verdict struct {
	Decision  Decision         `json:"decision"`
	Reason    string           `json:"reason"`
	Statement StatementFinding `json:"statement"`
	Documents DocumentFinding  `json:"documents"`

	// Set for request_more_info: the disputed draft field and the follow-up
	// question to ask.
	TargetField string `json:"target_field,omitempty"`
	FollowUp    string `json:"follow_up,omitempty"`
}

// Run executes the protocol once: the two evaluators fan out concurrently,
// the supervisor joins their findings. The evaluators are pure; the only
// error path is context cancellation.
func Run(ctx context.Context, d *claim.Draft, th Thresholds, now time.Time) (*Verdict, error) {
	var (
		stmt StatementFinding
		docs DocumentFinding
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stmt = EvaluateStatement(d, now)
		return ctx.Err()
	})
	g.Go(func() error {
		docs = EvaluateDocuments(d, th)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := Supervise(d, stmt, docs, th)
	return &v, nil
}
