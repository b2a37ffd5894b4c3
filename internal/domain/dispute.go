package domain

import (
	"strings"
	"time"
)

// DisputeStatus es el ciclo de vida de una impugnación a una resolución.
type DisputeStatus string

const (
	DisputePending    DisputeStatus = "PENDING"
	DisputeReviewing  DisputeStatus = "REVIEWING"
	DisputeUpheld     DisputeStatus = "UPHELD"
	DisputeOverturned DisputeStatus = "OVERTURNED"
	DisputeEscalated  DisputeStatus = "ESCALATED"
)

// Open indica si la disputa todavía espera un veredicto humano.
func (s DisputeStatus) Open() bool {
	return s == DisputePending || s == DisputeReviewing || s == DisputeEscalated
}

// ReviewDecision es un veredicto sobre una disputa.
type ReviewDecision string

const (
	DecisionUphold   ReviewDecision = "UPHOLD"
	DecisionOverturn ReviewDecision = "OVERTURN"
	// DecisionEscalate solo lo produce la revisión automática.
	DecisionEscalate ReviewDecision = "ESCALATE"
)

// Límites de envío de disputas.
const (
	MinDisputeReasonLen = 20
	MaxDisputeEvidence  = 5
	MaxDisputesPerHour  = 5
	MaxDisputesPerDay   = 20
)

// AutomatedReview es la salida del evaluador automático.
type AutomatedReview struct {
	Decision   ReviewDecision
	Confidence float64 // 0..1
	Rationale  string
	AssessedAt time.Time
}

// HumanReview es el veredicto final que registra la authority.
type HumanReview struct {
	Decision   ReviewDecision
	Reason     string
	Reviewer   Address
	ReviewedAt time.Time
}

// DisputeResult es el resultado que una disputa propone en lugar del original.
type DisputeResult struct {
	YesRatioBps uint64
	NoRatioBps  uint64
	Winner      TokenType
}

// Dispute es la impugnación de un usuario a una resolución. Como mucho una
// por (resolución, usuario), garantizado por la clave derivada.
type Dispute struct {
	Key        Key
	ID         string // uuid, para referencias externas
	Market     Key
	Resolution Key
	Disputer   Address
	Reason     string
	Evidence   []string
	Status     DisputeStatus
	Automated  *AutomatedReview
	Human      *HumanReview
	NewResult  *DisputeResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateDisputeInput comprueba los límites de motivo y evidencia.
func ValidateDisputeInput(reason string, evidence []string) error {
	if len([]rune(strings.TrimSpace(reason))) < MinDisputeReasonLen {
		return ErrInvalidDispute
	}
	if len(evidence) > MaxDisputeEvidence {
		return ErrInvalidDispute
	}
	return nil
}

// CurrentResult devuelve el resultado vigente de r.
func CurrentResult(r Resolution) DisputeResult {
	return DisputeResult{YesRatioBps: r.YesRatioBps, NoRatioBps: r.NoRatioBps, Winner: r.Winner}
}

// OppositeResult devuelve el resultado con los lados de r invertidos.
func OppositeResult(r Resolution) DisputeResult {
	return DisputeResult{
		YesRatioBps: r.NoRatioBps,
		NoRatioBps:  r.YesRatioBps,
		Winner:      r.Winner.Opposite(),
	}
}
