package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/evidence"
)

// Draft field names the document evaluator can dispute. The state machine
// maps these back to the conversation state that owns each field.
const (
	FieldIncidentDate     = "incident.date"
	FieldIncidentLocation = "incident.location"
	FieldDamageAmount     = "damage.amount"
)

// EvaluateDocuments compares the entities extracted from ready evidence
// against the claimant's statement fields. Mismatches beyond the configured
// tolerances become discrepancies; drift past twice a tolerance is high
// severity.
func EvaluateDocuments(d *claim.Draft, th Thresholds) DocumentFinding {
	conf := 1.0
	var discrepancies []Discrepancy

	add := func(disc Discrepancy) {
		discrepancies = append(discrepancies, disc)
		if disc.Severity == SeverityHigh {
			conf -= 0.2
		} else {
			conf -= 0.1
		}
	}

	stmtDate, stmtDateOK := parseDocDate(d.Incident.Date)

	for _, ev := range d.Evidence {
		if ev.Status != claim.EvidenceReady || len(ev.Entities) == 0 {
			continue
		}

		if raw := ev.Entities[evidence.EntityIncidentDate]; raw != "" && stmtDateOK {
			if docDate, ok := parseDocDate(raw); ok {
				diff := int(math.Abs(docDate.Sub(stmtDate).Hours()) / 24)
				if diff > th.DateToleranceDays {
					sev := SeverityLow
					if diff > th.DateToleranceDays*2 {
						sev = SeverityHigh
					}
					add(Discrepancy{
						Field:    FieldIncidentDate,
						Severity: sev,
						Detail: fmt.Sprintf(
							"Your %s lists the incident date as %s, but you reported %s (%d days apart).",
							ev.Type, docDate.Format("2006-01-02"), stmtDate.Format("2006-01-02"), diff),
					})
				}
			}
		}

		if raw := ev.Entities[evidence.EntityLocation]; raw != "" && d.Incident.Location != "" {
			if !locationsMatch(raw, d.Incident.Location) {
				add(Discrepancy{
					Field:    FieldIncidentLocation,
					Severity: SeverityLow,
					Detail: fmt.Sprintf(
						"Your %s lists the location as %q, which does not match the location you reported.",
						ev.Type, raw),
				})
			}
		}

		if raw := ev.Entities[evidence.EntityTotalAmount]; raw != "" {
			if docAmount, err := decimal.NewFromString(cleanAmount(raw)); err == nil {
				stated := d.EstimatedLoss()
				if !stated.IsZero() {
					diffPct, _ := docAmount.Sub(stated).Abs().
						Div(stated).Mul(decimal.NewFromInt(100)).Float64()
					if diffPct > th.AmountTolerancePct {
						sev := SeverityLow
						if diffPct > th.AmountTolerancePct*1.5 {
							sev = SeverityHigh
						}
						add(Discrepancy{
							Field:    FieldDamageAmount,
							Severity: sev,
							Detail: fmt.Sprintf(
								"Your %s shows a total of $%s, which differs from your $%s estimate by %.0f%%.",
								ev.Type, docAmount.StringFixed(2), stated.StringFixed(2), diffPct),
						})
					}
				}
			}
		}
	}

	if conf < 0 {
		conf = 0
	}
	return DocumentFinding{Confidence: conf, Discrepancies: discrepancies}
}

var docDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

func parseDocDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, f := range docDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// locationsMatch does a normalized comparison: exact substring containment or
// any shared significant word counts as a match. OCR output is noisy, so this
// errs toward matching; true conflicts surface as low-severity discrepancies.
func locationsMatch(a, b string) bool {
	na, nb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return len(commonWords(na, nb)) > 0
}

var locationStopWords = map[string]bool{
	"the": true, "and": true, "near": true, "street": true, "st": true,
	"ave": true, "avenue": true, "road": true, "rd": true, "blvd": true,
}

func commonWords(a, b string) []string {
	setA := make(map[string]bool)
	for _, w := range strings.FieldsFunc(a, notWordRune) {
		if len(w) > 2 && !locationStopWords[w] {
			setA[w] = true
		}
	}
	var common []string
	for _, w := range strings.FieldsFunc(b, notWordRune) {
		if len(w) > 2 && !locationStopWords[w] && setA[w] {
			common = append(common, w)
			setA[w] = false
		}
	}
	return common
}

func notWordRune(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
}

func cleanAmount(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
