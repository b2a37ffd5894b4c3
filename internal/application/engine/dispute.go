package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// SubmitDispute impugna la resolución del mercado mientras la ventana de
// disputas esté abierta. El caller debe tener YES o NO; como mucho una
// disputa por caller y resolución.
func (e *Engine) SubmitDispute(ctx context.Context, call Call, market domain.Key, reason string, evidence []string) (domain.Dispute, error) {
	var d domain.Dispute
	err := e.run(ctx, "SubmitDispute", func(t *txn) error {
		if _, err := t.config(); err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		res, err := t.tx.GetResolution(ctx, domain.ResolutionKey(m.Key))
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrMarketNotCompleted
		}
		if err != nil {
			return err
		}
		if !res.DisputeWindowOpen(t.now) {
			return fmt.Errorf("window ended %s: %w", res.DisputeWindowEnds.Format(time.RFC3339), domain.ErrDisputeWindowClosed)
		}
		if err := domain.ValidateDisputeInput(reason, evidence); err != nil {
			return fmt.Errorf("reason %d chars, %d evidence refs: %w", len([]rune(reason)), len(evidence), err)
		}

		yes, err := t.tx.TokenBalance(ctx, m.YesToken, call.Caller)
		if err != nil {
			return err
		}
		no, err := t.tx.TokenBalance(ctx, m.NoToken, call.Caller)
		if err != nil {
			return err
		}
		if yes == 0 && no == 0 {
			return fmt.Errorf("disputer holds no outcome tokens: %w", domain.ErrInsufficientBalance)
		}

		hourly, err := t.tx.CountDisputesSince(ctx, call.Caller, t.now.Add(-time.Hour))
		if err != nil {
			return err
		}
		if hourly >= domain.MaxDisputesPerHour {
			return fmt.Errorf("%d disputes in the last hour: %w", hourly, domain.ErrRateLimitExceeded)
		}
		daily, err := t.tx.CountDisputesSince(ctx, call.Caller, t.now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		if daily >= domain.MaxDisputesPerDay {
			return fmt.Errorf("%d disputes in the last day: %w", daily, domain.ErrRateLimitExceeded)
		}

		key := domain.DisputeKey(res.Key, call.Caller)
		_, err = t.tx.GetDispute(ctx, key)
		if err == nil {
			return domain.ErrDuplicateDispute
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		d = domain.Dispute{
			Key:        key,
			ID:         t.e.newID(),
			Market:     m.Key,
			Resolution: res.Key,
			Disputer:   call.Caller,
			Reason:     reason,
			Evidence:   evidence,
			Status:     domain.DisputePending,
			CreatedAt:  t.now,
			UpdatedAt:  t.now,
		}
		if err := t.tx.PutDispute(ctx, d); err != nil {
			return err
		}
		m.OpenDisputes++
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventDisputeSubmitted, m.Key, call.Caller, map[string]string{
			"dispute":  d.ID,
			"evidence": strconv.Itoa(len(evidence)),
		})
		return nil
	})
	return d, err
}

// AttachAssessment registra la revisión automática de una disputa pendiente.
// Solo la authority: el runner de revisión actúa con su identidad.
func (e *Engine) AttachAssessment(ctx context.Context, call Call, dispute domain.Key, review domain.AutomatedReview) (domain.Dispute, error) {
	var d domain.Dispute
	err := e.run(ctx, "AttachAssessment", func(t *txn) error {
		if _, err := t.authorityConfig(call.Caller); err != nil {
			return err
		}
		var err error
		if d, err = t.dispute(dispute); err != nil {
			return err
		}
		if d.Status != domain.DisputePending && d.Status != domain.DisputeReviewing {
			return fmt.Errorf("status %s: %w", d.Status, domain.ErrDisputeClosed)
		}
		switch review.Decision {
		case domain.DecisionUphold, domain.DecisionOverturn, domain.DecisionEscalate:
		default:
			return fmt.Errorf("decision %q: %w", review.Decision, domain.ErrInvalidDispute)
		}
		if review.Confidence < 0 || review.Confidence > 1 {
			return fmt.Errorf("confidence %.2f: %w", review.Confidence, domain.ErrInvalidDispute)
		}
		if review.AssessedAt.IsZero() {
			review.AssessedAt = t.now
		}

		d.Automated = &review
		d.Status = domain.DisputeReviewing
		if review.Decision == domain.DecisionEscalate {
			d.Status = domain.DisputeEscalated
		}
		d.UpdatedAt = t.now
		if err := t.tx.PutDispute(ctx, d); err != nil {
			return err
		}
		t.emit(domain.EventDisputeAssessed, d.Market, call.Caller, map[string]string{
			"dispute":    d.ID,
			"decision":   string(review.Decision),
			"confidence": strconv.FormatFloat(review.Confidence, 'f', 2, 64),
			"status":     string(d.Status),
		})
		return nil
	})
	return d, err
}

// ReviewDispute registra el veredicto final de la authority. Un overturn
// guarda el resultado invertido y lo aplica al mercado solo si todavía no se
// pagó nada con el resultado original; si no, el mercado queda marcado para
// reconciliación.
func (e *Engine) ReviewDispute(ctx context.Context, call Call, dispute domain.Key, decision domain.ReviewDecision, reason string) (domain.Dispute, error) {
	var d domain.Dispute
	err := e.run(ctx, "ReviewDispute", func(t *txn) error {
		if _, err := t.authorityConfig(call.Caller); err != nil {
			return err
		}
		var err error
		if d, err = t.dispute(dispute); err != nil {
			return err
		}
		if !d.Status.Open() {
			return fmt.Errorf("status %s: %w", d.Status, domain.ErrDisputeClosed)
		}
		if decision != domain.DecisionUphold && decision != domain.DecisionOverturn {
			return fmt.Errorf("decision %q: %w", decision, domain.ErrInvalidDispute)
		}
		m, err := t.market(d.Market)
		if err != nil {
			return err
		}
		res, err := t.tx.GetResolution(ctx, d.Resolution)
		if err != nil {
			return err
		}

		d.Human = &domain.HumanReview{
			Decision:   decision,
			Reason:     reason,
			Reviewer:   call.Caller,
			ReviewedAt: t.now,
		}
		d.Status = domain.DisputeUpheld
		if decision == domain.DecisionOverturn {
			d.Status = domain.DisputeOverturned
			result := domain.OppositeResult(res)
			if res.Overturned {
				// Ya volteada: el resultado vigente es el nuevo y no se toca.
				result = domain.CurrentResult(res)
			}
			d.NewResult = &result
			if err := t.applyOverturn(&m, &res, result, call.Caller); err != nil {
				return err
			}
		}
		if m.OpenDisputes > 0 {
			m.OpenDisputes--
		}
		d.UpdatedAt = t.now

		if err := t.tx.PutDispute(ctx, d); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventDisputeReviewed, d.Market, call.Caller, map[string]string{
			"dispute":  d.ID,
			"decision": string(decision),
			"status":   string(d.Status),
		})
		return nil
	})
	return d, err
}

// applyOverturn invierte el resultado del mercado si no hubo pagos con el
// original. Una resolución se invierte como mucho una vez.
func (t *txn) applyOverturn(m *domain.Market, res *domain.Resolution, result domain.DisputeResult, reviewer domain.Address) error {
	if res.Overturned {
		return nil
	}
	if m.ClaimsPaid > 0 || m.PoolSettled {
		m.NeedsReconciliation = true
		t.emit(domain.EventReconciliation, m.Key, reviewer, map[string]string{
			"claims_paid":   strconv.Itoa(m.ClaimsPaid),
			"total_claimed": num(m.TotalClaimed),
			"pool_settled":  strconv.FormatBool(m.PoolSettled),
		})
		return nil
	}
	m.Winner = result.Winner
	m.YesRatioBps, m.NoRatioBps = result.YesRatioBps, result.NoRatioBps
	res.Winner = result.Winner
	res.YesRatioBps, res.NoRatioBps = result.YesRatioBps, result.NoRatioBps
	res.Overturned = true
	return t.tx.PutResolution(t.ctx, *res)
}

func (t *txn) dispute(key domain.Key) (domain.Dispute, error) {
	d, err := t.tx.GetDispute(t.ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Dispute{}, fmt.Errorf("%s: %w", key.Hex(), domain.ErrDisputeNotFound)
	}
	return d, err
}
