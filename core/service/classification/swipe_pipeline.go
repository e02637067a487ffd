package classification

import (
	"context"

	"swipe_server/core/domain"
)

// =============================================================================
// Classification Pipeline (2-Stage)
// =============================================================================

// Pipeline runs the heuristic stage and layers LLM enrichment over it.
//
// Stage 1: Heuristic  → keyword scoring, always available
// Stage 2: Enrichment → model reply merged field-by-field over stage 1
type Pipeline struct {
	heuristic *HeuristicClassifier
	enricher  *Enricher
}

// NewPipeline creates a pipeline. A nil enricher leaves the heuristic stage alone.
func NewPipeline(heuristic *HeuristicClassifier, enricher *Enricher) *Pipeline {
	if heuristic == nil {
		heuristic = NewHeuristicClassifier()
	}
	return &Pipeline{heuristic: heuristic, enricher: enricher}
}

// Classify returns the final classification for email.
func (p *Pipeline) Classify(ctx context.Context, email *domain.NormalizedEmail) domain.ClassificationResult {
	if p.enricher == nil {
		return p.heuristic.Classify(email)
	}
	return p.enricher.Classify(ctx, email, p.heuristic.Classify)
}

// Fallback classifies with the heuristic stage only.
func (p *Pipeline) Fallback(email *domain.NormalizedEmail) domain.ClassificationResult {
	return p.heuristic.Classify(email)
}
