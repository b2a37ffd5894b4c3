package review

// runner.go — revisión automática de disputas pendientes.
//
// Cada ciclo carga las disputas PENDING, las evalúa en paralelo a través del
// Assessor y adjunta el resultado con la identidad de la authority. La
// decisión final siempre la toma un humano vía ReviewDispute.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Config contiene la configuración del runner.
type Config struct {
	Interval time.Duration
	Workers  int // goroutines de evaluación (0 = NumCPU*2)
	// MinConfidence: por debajo, un UPHOLD/OVERTURN se adjunta como ESCALATE.
	MinConfidence float64
	Once          bool
}

// Disputes es la parte del engine que usa el runner.
type Disputes interface {
	PendingDisputes(ctx context.Context) ([]domain.Dispute, error)
	Resolution(ctx context.Context, market domain.Key) (domain.Resolution, error)
	AttachAssessment(ctx context.Context, call engine.Call, dispute domain.Key, review domain.AutomatedReview) (domain.Dispute, error)
}

// Summary cuenta el resultado de un ciclo.
type Summary struct {
	Pending   int
	Assessed  int
	Escalated int
	Skipped   int // cerradas por un humano mientras se evaluaban
	Failed    int
}

// Runner es el loop de revisión automática.
type Runner struct {
	cfg       Config
	disputes  Disputes
	assessor  ports.Assessor
	authority domain.Address
}

// New crea un Runner. authority es la identidad con la que se adjuntan las
// evaluaciones; el engine la rechaza si no es la authority actual.
func New(cfg Config, disputes Disputes, assessor ports.Assessor, authority domain.Address) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	return &Runner{cfg: cfg, disputes: disputes, assessor: assessor, authority: authority}
}

// Run ejecuta ciclos hasta que el contexto se cancele.
// Con cfg.Once solo ejecuta uno.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("review runner starting",
		"interval", r.cfg.Interval,
		"workers", r.cfg.Workers,
		"once", r.cfg.Once,
	)

	if _, err := r.RunOnce(ctx); err != nil {
		slog.Error("review cycle failed", "err", err)
		if r.cfg.Once {
			return err
		}
	}
	if r.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("review runner stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				slog.Error("review cycle failed", "err", err)
			}
		}
	}
}

// RunOnce evalúa todas las disputas pendientes una vez. Un fallo al evaluar
// una disputa no aborta las demás: queda PENDING para el siguiente ciclo.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()

	pending, err := r.disputes.PendingDisputes(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("review.RunOnce: load pending: %w", err)
	}
	sum := Summary{Pending: len(pending)}
	if len(pending) == 0 {
		return sum, nil
	}

	var mu sync.Mutex
	count := func(f func(*Summary)) {
		mu.Lock()
		f(&sum)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, d := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, err := r.assess(gctx, d)
			switch {
			case errors.Is(err, domain.ErrDisputeClosed):
				slog.Debug("dispute closed during assessment", "dispute", d.ID)
				count(func(s *Summary) { s.Skipped++ })
			case err != nil:
				slog.Warn("assessment failed", "dispute", d.ID, "market", d.Market.Hex(), "err", err)
				count(func(s *Summary) { s.Failed++ })
			case status == domain.DisputeEscalated:
				count(func(s *Summary) { s.Assessed++; s.Escalated++ })
			default:
				count(func(s *Summary) { s.Assessed++ })
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, fmt.Errorf("review.RunOnce: %w", err)
	}

	slog.Info("review cycle complete",
		"pending", sum.Pending,
		"assessed", sum.Assessed,
		"escalated", sum.Escalated,
		"failed", sum.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return sum, nil
}

// assess evalúa una disputa y adjunta el resultado.
func (r *Runner) assess(ctx context.Context, d domain.Dispute) (domain.DisputeStatus, error) {
	res, err := r.disputes.Resolution(ctx, d.Market)
	if err != nil {
		return "", err
	}
	rv, err := r.assessor.Assess(ctx, res, d)
	if err != nil {
		return "", fmt.Errorf("assess: %w", err)
	}
	if rv.Decision != domain.DecisionEscalate && rv.Confidence < r.cfg.MinConfidence {
		rv.Rationale = fmt.Sprintf("%s (confidence %.2f below %.2f, escalated)", rv.Rationale, rv.Confidence, r.cfg.MinConfidence)
		rv.Decision = domain.DecisionEscalate
	}
	updated, err := r.disputes.AttachAssessment(ctx, engine.As(r.authority), d.Key, rv)
	if err != nil {
		return "", err
	}
	slog.Debug("dispute assessed",
		"dispute", d.ID,
		"decision", rv.Decision,
		"confidence", rv.Confidence,
		"status", updated.Status,
	)
	return updated.Status, nil
}
