package assessor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
)

var _ ports.Assessor = Heuristic{}

// Heuristic es el evaluador offline que se usa si no hay servicio de
// evaluación configurado. Solo preordena las disputas para el revisor humano:
//   - sin evidencia, o resolución escalar: ESCALATE
//   - evidencia de dos o más hosts independientes: OVERTURN
//   - en otro caso: UPHOLD
type Heuristic struct{}

func (Heuristic) Assess(_ context.Context, res domain.Resolution, d domain.Dispute) (domain.AutomatedReview, error) {
	hosts := distinctHosts(d.Evidence)

	switch {
	case len(d.Evidence) == 0:
		return domain.AutomatedReview{
			Decision:   domain.DecisionEscalate,
			Confidence: 0.2,
			Rationale:  "no evidence attached",
		}, nil
	case res.YesRatioBps != domain.BasisPoints && res.NoRatioBps != domain.BasisPoints:
		return domain.AutomatedReview{
			Decision:   domain.DecisionEscalate,
			Confidence: 0.5,
			Rationale:  fmt.Sprintf("scalar resolution %d/%d needs manual review", res.YesRatioBps, res.NoRatioBps),
		}, nil
	case hosts >= 2:
		return domain.AutomatedReview{
			Decision:   domain.DecisionOverturn,
			Confidence: min(0.5+0.1*float64(hosts), 0.9),
			Rationale:  fmt.Sprintf("%d independent sources dispute the result", hosts),
		}, nil
	default:
		return domain.AutomatedReview{
			Decision:   domain.DecisionUphold,
			Confidence: 0.6,
			Rationale:  "single source against the recorded evidence",
		}, nil
	}
}

// distinctHosts cuenta los hosts distintos entre las URLs de evidencia. Las
// referencias que no son URL (hashes, ids de ipfs) cuentan como fuente propia.
func distinctHosts(evidence []string) int {
	seen := make(map[string]bool, len(evidence))
	for _, ref := range evidence {
		key := strings.ToLower(strings.TrimSpace(ref))
		if u, err := url.Parse(key); err == nil && u.Host != "" {
			key = strings.TrimPrefix(u.Hostname(), "www.")
		}
		if key != "" {
			seen[key] = true
		}
	}
	return len(seen)
}
