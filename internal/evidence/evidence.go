// Package evidence adapts the external evidence store: uploads are persisted
// and OCR'd elsewhere, the core only consumes the extracted structured fields.
package evidence

import (
	"context"
	"errors"
)

var (
	// ErrNotReady means extraction is still running. Retriable, not fatal.
	ErrNotReady = errors.New("evidence not ready")
	// ErrInvalid means the upload could not be processed; the claimant must
	// re-upload.
	ErrInvalid = errors.New("evidence invalid")
)

// Well-known extracted entity keys. Extraction output is a flat string map;
// these are the fields reconciliation compares against claimant statements.
const (
	EntityIncidentDate = "incident_date"
	EntityLocation     = "incident_location"
	EntityTotalAmount  = "total_amount"
	EntityReportNumber = "report_number"
)

// Entities is the structured extraction result for one document.
type Entities map[string]string

// Store is the contract against the external evidence system.
type Store interface {
	// GetExtractedEntities returns the structured fields for an uploaded
	// document. Fails with ErrNotReady while extraction is in flight and
	// ErrInvalid when the document cannot be processed.
	GetExtractedEntities(ctx context.Context, ref string) (Entities, error)
}
