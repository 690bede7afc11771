// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package scheduler drives pending Events through their status DAG: it
// polls due work, enforces per-endpoint serialization and rate limits,
// hands admitted Events to the dispatcher, and reschedules or dead-letters
// them based on the outcome.
package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/breaker"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/dispatcher"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/metrics"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/store"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// eventStore is the slice of the store the Scheduler needs. Narrowed to an
// interface so tests can supply an in-memory fake instead of a SQLStore.
type eventStore interface {
	FindDueEvents(now int64, limit int) ([]*model.Event, error)
	UpdateEvent(id string, expectStatus model.EventStatus, expectAttempts int, update store.EventUpdate) error
	RecordDeliveryOutcome(attempt *model.DeliveryAttempt, eventID string, expectStatus model.EventStatus, expectAttempts int, update store.EventUpdate) error
	GetSubscription(id string) (*model.Subscription, error)
	UpsertDeliveryStats(subscriptionID string, period string, delta model.StatsDelta) error
}

// Config tunes the Scheduler's control loop. Zero-value fields fall back to
// the defaults noted below.
type Config struct {
	// PollInterval is the wait between control-loop ticks. Default 1s.
	PollInterval time.Duration
	// BatchSize bounds how many due Events are fetched per tick. Default 100.
	BatchSize int
	// WorkerCount bounds concurrent in-flight delivery attempts across all
	// endpoints. Default 10.
	WorkerCount int
	// BaseDelay and MaxDelay parameterize the backoff formula. Defaults 1s/5m.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// DrainDeadline bounds how long stop() waits for in-flight workers to
	// finish before returning. Default 30s.
	DrainDeadline time.Duration
	// StatsPeriod names the DeliveryStats bucket Events are rolled into,
	// e.g. a day-granularity key computed by the caller. Default "all".
	StatsPeriod string
	// Metrics, when non-nil, receives Prometheus instrumentation for every
	// tick and delivery outcome. Nil disables metrics entirely.
	Metrics *metrics.DeliveryMetrics
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = time.Second
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 100
	}
	if out.WorkerCount <= 0 {
		out.WorkerCount = 10
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = DefaultBaseDelay
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = DefaultMaxDelay
	}
	if out.DrainDeadline <= 0 {
		out.DrainDeadline = 30 * time.Second
	}
	if out.StatsPeriod == "" {
		out.StatsPeriod = "all"
	}
	return out
}

// Scheduler is the delivery control loop described above. Safe to Start
// once; Stop is idempotent.
type Scheduler struct {
	store      eventStore
	dispatcher *dispatcher.Dispatcher
	breakers   *breaker.Manager
	clock      clockwork.Clock
	logger     log.FieldLogger
	config     Config
	rng        *rand.Rand

	limiter *rateLimiter

	mu       sync.Mutex
	busyURLs map[string]bool

	sem chan struct{}

	enqueueCh chan struct{}
	stopCh    chan struct{}
	stopped   chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New constructs a Scheduler. rngSeed parameterizes jitter for reproducible
// tests; pass time.Now().UnixNano() in production.
func New(st eventStore, disp *dispatcher.Dispatcher, breakers *breaker.Manager, clock clockwork.Clock, logger log.FieldLogger, cfg Config, rngSeed int64) *Scheduler {
	cfg = cfg.withDefaults()

	return &Scheduler{
		store:      st,
		dispatcher: disp,
		breakers:   breakers,
		clock:      clock,
		logger:     logger.WithField("component", "scheduler"),
		config:     cfg,
		rng:        rand.New(rand.NewSource(rngSeed)),
		limiter:    newRateLimiter(),
		busyURLs:   make(map[string]bool),
		sem:        make(chan struct{}, cfg.WorkerCount),
		enqueueCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start launches the control loop in a background goroutine. Calling Start
// more than once has no additional effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Stop signals the control loop and in-flight workers to wind down, waiting
// up to Config.DrainDeadline for them to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.config.DrainDeadline):
			s.logger.Warn("drain deadline exceeded, returning with workers still in flight")
		}
		close(s.stopped)
	})
}

// Enqueue nudges the control loop to run a tick immediately rather than
// waiting for the next PollInterval. It never blocks: a pending nudge is
// coalesced with any already queued.
func (s *Scheduler) Enqueue(*model.Event) {
	select {
	case s.enqueueCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.tick()

		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
		case <-s.enqueueCh:
		}
	}
}

// tick runs one control-loop iteration: poll, gate, admit.
func (s *Scheduler) tick() {
	now := s.clock.Now()

	events, err := s.store.FindDueEvents(model.GetMillisAtTime(now), s.config.BatchSize)
	if err != nil {
		s.logger.WithError(err).Error("failed to poll due events")
		return
	}

	if s.config.Metrics != nil {
		s.config.Metrics.QueueDepth.Set(float64(len(events)))
		for url, state := range s.breakers.States() {
			s.config.Metrics.BreakerState.WithLabelValues(url).Set(metrics.BreakerStateValue(string(state)))
		}
	}

	for _, event := range events {
		s.handleDueEvent(event, now)
	}
}

func (s *Scheduler) handleDueEvent(event *model.Event, now time.Time) {
	logger := s.logger.WithField("eventId", event.ID)

	sub, err := s.store.GetSubscription(event.SubscriptionID)
	if err != nil {
		logger.WithError(err).Error("failed to load subscription for due event")
		return
	}
	if sub == nil || !sub.Enabled || sub.DeleteAt != 0 {
		s.deadLetter(event, "subscription gone", now)
		return
	}

	if !s.tryAcquireURL(sub.URL) {
		// Another worker already has this endpoint; leave pending for the
		// next tick.
		return
	}

	if admitted, retryAfter := s.limiter.admit(sub.URL, now, sub.RateLimit, time.Duration(sub.RateLimitPeriod)*time.Millisecond); !admitted {
		s.releaseURL(sub.URL)
		if s.config.Metrics != nil {
			s.config.Metrics.RateLimitDeferrals.WithLabelValues(sub.ID).Inc()
		}
		s.deferEvent(event, now.Add(retryAfter), logger)
		return
	}

	attemptNumber := event.Attempts + 1
	update := store.EventUpdate{
		Status:           model.EventStatusInFlight,
		Attempts:         attemptNumber,
		LastAttemptedOn:  model.GetMillisAtTime(now),
		NextAttemptAfter: event.NextAttemptAfter,
		LastError:        event.LastError,
	}
	if err := s.store.UpdateEvent(event.ID, event.Status, event.Attempts, update); err != nil {
		s.releaseURL(sub.URL)
		if errors.Is(err, store.ErrEventConflict) {
			logger.Debug("event claimed by another worker, skipping")
			return
		}
		logger.WithError(err).Error("failed to admit event to in-flight")
		return
	}
	event.Status = model.EventStatusInFlight
	event.Attempts = attemptNumber
	event.LastAttemptedOn = update.LastAttemptedOn

	s.sem <- struct{}{}
	s.wg.Add(1)
	go func() {
		defer func() {
			<-s.sem
			s.releaseURL(sub.URL)
			s.wg.Done()
		}()
		s.deliver(event, sub, attemptNumber, logger)
	}()
}

func (s *Scheduler) tryAcquireURL(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyURLs[url] {
		return false
	}
	s.busyURLs[url] = true
	return true
}

func (s *Scheduler) releaseURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busyURLs, url)
}

func (s *Scheduler) deliver(event *model.Event, sub *model.Subscription, attemptNumber int, logger log.FieldLogger) {
	select {
	case <-s.stopCh:
		s.rollbackCancelled(event, logger)
		return
	default:
	}

	br := s.breakers.Get(sub.URL)
	outcome, attempt := s.dispatcher.Deliver(event, sub, br, attemptNumber)

	now := s.clock.Now()
	delta := model.StatsDelta{
		Delivered:    outcome.Success,
		Failed:       !outcome.Success,
		ResponseTime: attempt.ResponseTime,
		AttemptAt:    model.GetMillisAtTime(now),
	}
	if outcome.Success {
		delta.SuccessfulAt = model.GetMillisAtTime(now)
	}
	if err := s.store.UpsertDeliveryStats(sub.ID, s.config.StatsPeriod, delta); err != nil {
		logger.WithError(err).Error("failed to update delivery stats")
	}

	if s.config.Metrics != nil {
		s.config.Metrics.AttemptsTotal.WithLabelValues(sub.ID, outcomeLabel(outcome.Success, outcome.Retryable)).Inc()
		s.config.Metrics.ResponseTimeHist.WithLabelValues(sub.ID).Observe(outcome.ResponseTime.Seconds())
	}

	switch {
	case outcome.Success:
		s.finalize(event, attempt, model.EventStatusDelivered, now, "", logger)

	case outcome.Retryable && event.Attempts < sub.RetryAttempts+1:
		next := s.nextAttemptAfter(event.Attempts, now, outcome)
		s.retry(event, attempt, next, outcome.Error, logger)

	default:
		if s.config.Metrics != nil {
			s.config.Metrics.DeadLetteredTotal.WithLabelValues(sub.ID, deadLetterReason(outcome)).Inc()
		}
		s.finalize(event, attempt, model.EventStatusDeadLettered, now, outcome.Error, logger)
	}
}

func outcomeLabel(success, retryable bool) string {
	switch {
	case success:
		return "success"
	case retryable:
		return "retryable"
	default:
		return "permanent"
	}
}

func deadLetterReason(outcome dispatcher.Outcome) string {
	if outcome.Retryable {
		return "retries_exhausted"
	}
	return "permanent_failure"
}

func (s *Scheduler) nextAttemptAfter(attempts int, now time.Time, outcome dispatcher.Outcome) time.Time {
	if outcome.BreakerDeferral > 0 {
		return now.Add(outcome.BreakerDeferral)
	}
	if outcome.RetryAfter > 0 {
		delay := outcome.RetryAfter
		if delay > s.config.MaxDelay {
			delay = s.config.MaxDelay
		}
		return now.Add(delay)
	}
	return now.Add(backoff(attempts, s.config.BaseDelay, s.config.MaxDelay, s.rng))
}

func (s *Scheduler) retry(event *model.Event, attempt *model.DeliveryAttempt, next time.Time, lastError string, logger log.FieldLogger) {
	update := store.EventUpdate{
		Status:           model.EventStatusFailedRetryable,
		Attempts:         event.Attempts,
		LastAttemptedOn:  event.LastAttemptedOn,
		NextAttemptAfter: model.GetMillisAtTime(next),
		LastError:        lastError,
	}
	if err := s.store.RecordDeliveryOutcome(attempt, event.ID, event.Status, event.Attempts, update); err != nil {
		logger.WithError(err).Error("failed to record delivery attempt and mark event failed-retryable")
	}
}

func (s *Scheduler) finalize(event *model.Event, attempt *model.DeliveryAttempt, status model.EventStatus, now time.Time, lastError string, logger log.FieldLogger) {
	update := store.EventUpdate{
		Status:           status,
		Attempts:         event.Attempts,
		LastAttemptedOn:  event.LastAttemptedOn,
		NextAttemptAfter: event.NextAttemptAfter,
		LastError:        lastError,
	}
	if err := s.store.RecordDeliveryOutcome(attempt, event.ID, event.Status, event.Attempts, update); err != nil {
		logger.WithError(err).Error("failed to record delivery attempt and finalize event")
	}
}

func (s *Scheduler) deferEvent(event *model.Event, next time.Time, logger log.FieldLogger) {
	update := store.EventUpdate{
		Status:           event.Status,
		Attempts:         event.Attempts,
		LastAttemptedOn:  event.LastAttemptedOn,
		NextAttemptAfter: model.GetMillisAtTime(next),
		LastError:        event.LastError,
	}
	if err := s.store.UpdateEvent(event.ID, event.Status, event.Attempts, update); err != nil {
		if !errors.Is(err, store.ErrEventConflict) {
			logger.WithError(err).Error("failed to defer rate-limited event")
		}
	}
}

func (s *Scheduler) deadLetter(event *model.Event, reason string, now time.Time) {
	update := store.EventUpdate{
		Status:           model.EventStatusDeadLettered,
		Attempts:         event.Attempts,
		LastAttemptedOn:  event.LastAttemptedOn,
		NextAttemptAfter: event.NextAttemptAfter,
		LastError:        reason,
	}
	if err := s.store.UpdateEvent(event.ID, event.Status, event.Attempts, update); err != nil {
		s.logger.WithField("eventId", event.ID).WithError(err).Error("failed to dead-letter orphaned event")
		return
	}
	if s.config.Metrics != nil {
		s.config.Metrics.DeadLetteredTotal.WithLabelValues(event.SubscriptionID, reason).Inc()
	}
}

// rollbackCancelled handles an Event whose worker never got to dispatch
// because Stop was signalled first: it rolls the Event back to
// failed-retryable with a small backoff, per the cancellation contract.
func (s *Scheduler) rollbackCancelled(event *model.Event, logger log.FieldLogger) {
	now := s.clock.Now()
	update := store.EventUpdate{
		Status:           model.EventStatusFailedRetryable,
		Attempts:         event.Attempts,
		LastAttemptedOn:  event.LastAttemptedOn,
		NextAttemptAfter: model.GetMillisAtTime(now.Add(time.Second)),
		LastError:        "cancelled during shutdown",
	}
	if err := s.store.UpdateEvent(event.ID, event.Status, event.Attempts, update); err != nil {
		logger.WithError(err).Error("failed to roll back cancelled event")
	}
}

// Done closes once Stop has finished draining in-flight workers, so a
// caller (e.g. the main process) can block on shutdown completing.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}
