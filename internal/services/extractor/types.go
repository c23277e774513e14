package extractor

import (
	"github.com/ternarybob/findata/internal/models"
)

// Outcome is the result of one target that did not fault.
type Outcome int

const (
	// OutcomeSkipped means the stored artifact is current.
	OutcomeSkipped Outcome = iota
	// OutcomeExtracted means a new artifact was written.
	OutcomeExtracted
	// OutcomeAbsent means the portal has no data for the target. No artifact is written.
	OutcomeAbsent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeExtracted:
		return "extracted"
	case OutcomeAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// FilingResult tallies the targets of one filing.
type FilingResult struct {
	Filing    models.Filing
	Extracted int
	Skipped   int
	Absent    int
	// Faults holds one *models.TargetError per failed target.
	Faults []error
}

func (r *FilingResult) add(outcome Outcome) {
	switch outcome {
	case OutcomeExtracted:
		r.Extracted++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeAbsent:
		r.Absent++
	}
}
