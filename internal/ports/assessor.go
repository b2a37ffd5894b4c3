package ports

import (
	"context"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// Assessor produce la revisión automática de una disputa.
type Assessor interface {
	// Assess evalúa la disputa contra la resolución que impugna.
	Assess(ctx context.Context, res domain.Resolution, d domain.Dispute) (domain.AutomatedReview, error)
}
