// Package gate decides whether a target's artifact must be extracted again.
package gate

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
)

// Decision is the result of a freshness check.
type Decision struct {
	// Needed reports whether the target must be extracted.
	Needed bool
	// Reason explains the decision for logs.
	Reason string
}

// Check applies the freshness rule: extraction is needed unless the artifact exists and was
// written strictly after the filing's submission date. An amended filing republished with a
// later submission date therefore invalidates an older artifact.
func Check(filing models.Filing, state models.ArtifactState) Decision {
	if !state.Exists {
		return Decision{Needed: true, Reason: "artifact missing"}
	}
	if !state.LastWrite.After(filing.SubmissionDate) {
		return Decision{
			Needed: true,
			Reason: fmt.Sprintf("artifact written %s, not after submission %s",
				state.LastWrite.Format("2006-01-02 15:04:05"),
				filing.SubmissionDate.Format("2006-01-02 15:04:05")),
		}
	}
	return Decision{Needed: false, Reason: "artifact is current"}
}

// NeedsExtraction is the boolean form of Check.
func NeedsExtraction(target models.Target, state models.ArtifactState) bool {
	return Check(target.Filing, state).Needed
}

// Gate checks targets against the artifact store's current state.
type Gate struct {
	states interfaces.ArtifactStateReader
	logger arbor.ILogger
}

// New creates a gate reading artifact state from states.
func New(states interfaces.ArtifactStateReader, logger arbor.ILogger) *Gate {
	return &Gate{
		states: states,
		logger: logger,
	}
}

// NeedsExtraction reads the target's artifact state and applies Check.
func (g *Gate) NeedsExtraction(ctx context.Context, target models.Target) (bool, error) {
	state, err := g.states.State(ctx, target)
	if err != nil {
		return false, fmt.Errorf("failed to read artifact state: %w", err)
	}

	decision := Check(target.Filing, state)
	g.logger.Debug().
		Str("target", target.String()).
		Bool("needed", decision.Needed).
		Str("reason", decision.Reason).
		Msg("Freshness check")

	return decision.Needed, nil
}

// NeedsAnyExtraction reports whether any of the filing's six statement targets or its capital
// target is stale. It stops at the first stale target.
func (g *Gate) NeedsAnyExtraction(ctx context.Context, company models.Company, filing models.Filing) (bool, error) {
	for _, target := range models.Targets(company, filing) {
		needed, err := g.NeedsExtraction(ctx, target)
		if err != nil {
			return false, err
		}
		if needed {
			return true, nil
		}
	}
	return false, nil
}
