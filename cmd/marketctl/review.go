package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/alejandrodnm/outcomex/internal/adapters/assessor"
	"github.com/alejandrodnm/outcomex/internal/application/review"
	"github.com/alejandrodnm/outcomex/internal/ports"
)

func runReviewLoop(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("review-run", flag.ContinueOnError)
	once := fs.Bool("once", false, "run one review cycle and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var asr ports.Assessor = assessor.Heuristic{}
	if a.cfg.Assessor.URL != "" {
		asr = assessor.NewClient(a.cfg.Assessor.URL,
			assessor.WithToken(a.cfg.Assessor.Token),
			assessor.WithTimeout(a.cfg.AssessorTimeout()),
		)
		slog.Info("using remote assessor", "url", a.cfg.Assessor.URL)
	} else {
		slog.Info("no assessor url configured, using local heuristic")
	}

	r := review.New(review.Config{
		Interval:      a.cfg.ReviewInterval(),
		Workers:       a.cfg.Review.Workers,
		MinConfidence: a.cfg.Review.MinConfidence,
		Once:          *once,
	}, a.eng, asr, a.caller)

	if err := r.Run(ctx); err != nil {
		return err
	}
	slog.Info("review runner stopped cleanly")
	return nil
}
