package triage

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
)

type workerStats struct {
	classified int64 // atomic counter
	extracted  int64 // atomic counter
	failed     int64 // atomic counter
}

// Run polls for unclassified and unextracted emails until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Starting triage worker",
		zap.Duration("interval", s.opts.Interval),
		zap.Int("concurrency", s.opts.Concurrency),
	)

	go s.logPerformanceMetrics(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	// Initial pass
	s.processPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.processPending(ctx)
		}
	}
}

// Shutdown waits for the in-flight batch to finish, up to timeout.
// Returns true if shutdown completed gracefully, false if timeout was reached.
func (s *Service) Shutdown(timeout time.Duration) bool {
	s.logger.Info("Shutting down triage worker", zap.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.processingWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("All in-flight emails completed")
		return true
	case <-time.After(timeout):
		s.logger.Warn("Shutdown timeout reached, some emails may still be in progress", zap.Duration("timeout", timeout))
		return false
	}
}

// processPending classifies then extracts one batch of pending emails.
func (s *Service) processPending(ctx context.Context) {
	s.processingWg.Add(1)
	defer s.processingWg.Done()

	if ctx.Err() != nil {
		return
	}

	unclassified, err := s.store.ListUnclassified(ctx, s.opts.BatchSize)
	if err != nil {
		s.logger.Error("Failed to list unclassified emails", zap.Error(err))
	} else if len(unclassified) > 0 {
		ok, failed := s.forEach(ctx, unclassified, func(ctx context.Context, email models.EmailRecord) error {
			_, err := s.classifyEmail(ctx, email)
			return err
		}, "classify")
		atomic.AddInt64(&s.stats.classified, int64(ok))
		atomic.AddInt64(&s.stats.failed, int64(failed))
	}

	if ctx.Err() != nil {
		return
	}

	unextracted, err := s.store.ListUnextracted(ctx, s.opts.BatchSize)
	if err != nil {
		s.logger.Error("Failed to list unextracted emails", zap.Error(err))
		return
	}
	if len(unextracted) > 0 {
		ok, failed := s.forEach(ctx, unextracted, func(ctx context.Context, email models.EmailRecord) error {
			_, err := s.extractEmail(ctx, email)
			return err
		}, "extract")
		atomic.AddInt64(&s.stats.extracted, int64(ok))
		atomic.AddInt64(&s.stats.failed, int64(failed))
	}
}

// logPerformanceMetrics logs worker counters on a jittered interval.
func (s *Service) logPerformanceMetrics(ctx context.Context) {
	baseInterval := 30 * time.Second
	jitterRange := 4 * time.Second

	for {
		jitter := time.Duration(rand.Int63n(int64(jitterRange))) - jitterRange/2

		select {
		case <-ctx.Done():
			return
		case <-time.After(baseInterval + jitter):
			s.logMetrics()
		}
	}
}

func (s *Service) logMetrics() {
	s.logger.Info("Worker metrics",
		zap.Int64("classified", atomic.LoadInt64(&s.stats.classified)),
		zap.Int64("extracted", atomic.LoadInt64(&s.stats.extracted)),
		zap.Int64("failed", atomic.LoadInt64(&s.stats.failed)),
	)
}
