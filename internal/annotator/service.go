// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/ontomap/internal/httputil"
	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/metrics"
	"github.com/pdiddy/ontomap/internal/textnorm"
)

// Service is the annotator as the resolution engine sees it: every call is
// retried a bounded number of times, cached for the run, and never fails.
// A phrase whose retries are exhausted degrades to no candidates.
type Service struct {
	client  Client
	cache   *Cache
	policy  httputil.Policy
	logger  *slog.Logger
	issues  *issues.Collector
	metrics *metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithCache shares an existing cache.
func WithCache(c *Cache) Option { return func(s *Service) { s.cache = c } }

// WithRetry sets the total attempts and fixed delay per call. Zero values
// keep the defaults (3 attempts, httputil.DefaultRetryDelay).
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.policy.MaxAttempts = attempts
		s.policy.Delay = delay
	}
}

// WithLogger sets the structured logger for degraded calls.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithIssues records degraded calls in a collector.
func WithIssues(c *issues.Collector) Option { return func(s *Service) { s.issues = c } }

// WithMetrics counts attempts and cache lookups.
func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }

// NewService wraps client.
func NewService(client Client, opts ...Option) *Service {
	s := &Service{client: client}
	for _, o := range opts {
		o(s)
	}
	if s.cache == nil {
		s.cache = NewCache()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Cache returns the service cache.
func (s *Service) Cache() *Cache { return s.cache }

// Search returns ranked candidates for phrase. The phrase is normalized and
// the normalized form is the cache key, so each distinct phrase reaches the
// client at most once per run. Errors degrade to no candidates; only
// context cancellation is left uncached.
func (s *Service) Search(ctx context.Context, phrase string) []Candidate {
	key := textnorm.Normalize(phrase)
	if key == "" {
		return nil
	}
	cands, hit, err := s.cache.Search(key, func() ([]Candidate, error) {
		var out []Candidate
		err := s.call(ctx, "search", key, func(ctx context.Context) error {
			c, err := s.client.Search(ctx, key)
			out = c
			return err
		})
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		return out, nil
	})
	if err == nil {
		s.metrics.ObserveCache(hit)
	}
	return cands
}

// FindLabel returns the preferred label of code in a vocabulary, or "" when
// unknown or when the service is unavailable.
func (s *Service) FindLabel(ctx context.Context, vocabularyID, code string) string {
	label, _ := s.cache.Label(vocabularyID, code, func() (string, error) {
		var out string
		err := s.call(ctx, "find_label", code, func(ctx context.Context) error {
			l, err := s.client.FindLabel(ctx, vocabularyID, code)
			out = l
			return err
		})
		if err != nil && ctx.Err() != nil {
			return "", err
		}
		return out, nil
	})
	return label
}

// call runs fn under the retry policy and turns failures into log lines,
// issues and metrics. The returned error is ErrServiceUnavailable when
// retries were exhausted.
func (s *Service) call(ctx context.Context, op, subject string, fn func(context.Context) error) error {
	policy := s.policy
	policy.OnRetry = func(attempt int, err error) {
		s.metrics.ObserveAnnotatorCall(op, metrics.OutcomeRetry)
		s.logger.Debug("annotator retry", "op", op, "subject", subject, "attempt", attempt, "error", err)
	}

	err := httputil.Retry(ctx, policy, fn)
	if err == nil {
		s.metrics.ObserveAnnotatorCall(op, metrics.OutcomeOK)
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	var exhausted *httputil.ExhaustedError
	if errors.As(err, &exhausted) {
		s.metrics.ObserveAnnotatorCall(op, metrics.OutcomeUnavailable)
		s.logger.Warn("annotator unavailable, treating as no candidates", "op", op, "subject", subject, "attempts", exhausted.Attempts, "error", exhausted.Err)
		s.issues.Add(issues.Issue{
			Kind:    issues.Service,
			Source:  "annotator",
			Key:     subject,
			Message: fmt.Sprintf("%s: %v", op, exhausted),
		})
		return fmt.Errorf("%s %q: %w", op, subject, ErrServiceUnavailable)
	}

	s.metrics.ObserveAnnotatorCall(op, metrics.OutcomeError)
	s.logger.Warn("annotator call failed", "op", op, "subject", subject, "error", err)
	s.issues.Add(issues.Issue{Kind: issues.Service, Source: "annotator", Key: subject, Message: fmt.Sprintf("%s: %v", op, err)})
	return err
}
