package triage

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stoik/triage/internal/models"
	svcmodels "github.com/stoik/triage/services/triage-service/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/metrics"
)

// ClassifyAll classifies every email, or only unclassified ones, with bounded parallelism.
// Per-email failures are counted and do not stop the batch.
func (s *Service) ClassifyAll(ctx context.Context, onlyUnclassified bool) (svcmodels.ClassifyAllResult, error) {
	var (
		emails []models.EmailRecord
		err    error
	)
	if onlyUnclassified {
		emails, err = s.store.ListUnclassified(ctx, 0)
	} else {
		emails, err = s.store.ListEmails(ctx, nil, 0)
	}
	if err != nil {
		return svcmodels.ClassifyAllResult{}, fmt.Errorf("failed to list emails: %w", err)
	}

	classified, failed := s.forEach(ctx, emails, func(ctx context.Context, email models.EmailRecord) error {
		_, err := s.classifyEmail(ctx, email)
		return err
	}, "classify")

	result := svcmodels.ClassifyAllResult{
		Total:      len(emails),
		Classified: classified,
		Failed:     failed,
	}
	s.logger.Info("Bulk classification finished",
		zap.Int("total", result.Total),
		zap.Int("classified", result.Classified),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// forEach runs fn over emails with at most Concurrency in flight and reports
// success and failure counts. Emails not started before ctx is cancelled count as failed.
func (s *Service) forEach(ctx context.Context, emails []models.EmailRecord, fn func(context.Context, models.EmailRecord) error, stage string) (int, int) {
	var ok, failed int64

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for _, email := range emails {
		email := email
		g.Go(func() error {
			if ctx.Err() != nil {
				atomic.AddInt64(&failed, 1)
				return nil
			}
			if err := fn(ctx, email); err != nil {
				atomic.AddInt64(&failed, 1)
				metrics.IncrementEmailProcessed(stage, "failed")
				s.logger.Warn("Failed to process email",
					zap.String("stage", stage),
					zap.String("email_id", email.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			atomic.AddInt64(&ok, 1)
			metrics.IncrementEmailProcessed(stage, "success")
			return nil
		})
	}
	_ = g.Wait()

	return int(ok), int(failed)
}
