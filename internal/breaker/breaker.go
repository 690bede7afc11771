// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package breaker implements a per-endpoint circuit breaker: a fast-fail
// gate that isolates a URL after it starts failing or responding slowly,
// and admits traffic back gradually once it recovers.
package breaker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// State is a node in the breaker state machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned by Execute when the breaker is open and the open
// window has not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// Params configures a Breaker's thresholds. New replaces a Params whose
// fields are all zero with DefaultParams; otherwise every field, including a
// zero one, is used as given.
type Params struct {
	FailureThreshold        int
	SuccessThreshold        int
	OpenDuration            time.Duration
	RequestVolumeThreshold  int
	ResponseTimeThreshold   time.Duration
	HealthCheckInterval     time.Duration
}

// DefaultParams returns the thresholds specified for the delivery core.
func DefaultParams() Params {
	return Params{
		FailureThreshold:       5,
		SuccessThreshold:       3,
		OpenDuration:           60 * time.Second,
		RequestVolumeThreshold: 10,
		ResponseTimeThreshold:  10 * time.Second,
		HealthCheckInterval:    30 * time.Second,
	}
}

// Prober is an external health check the breaker may consult while open, to
// transition to half-open ahead of OpenDuration elapsing. Defaulting to nil
// disables probing entirely; spec left the real probe mechanism
// unspecified, so this module never invents one.
type Prober func(url string) bool

const responseTimeWindow = 100

// ringBuffer is a fixed-capacity ring of the most recent response time
// observations, used to compute a moving average.
type ringBuffer struct {
	samples []time.Duration
	next    int
	filled  bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{samples: make([]time.Duration, capacity)}
}

func (r *ringBuffer) add(d time.Duration) {
	r.samples[r.next] = d
	r.next = (r.next + 1) % len(r.samples)
	if r.next == 0 {
		r.filled = true
	}
}

func (r *ringBuffer) average() time.Duration {
	n := len(r.samples)
	if !r.filled {
		n = r.next
	}
	if n == 0 {
		return 0
	}

	var total time.Duration
	for i := 0; i < n; i++ {
		total += r.samples[i]
	}
	return total / time.Duration(n)
}

// Breaker is a single per-endpoint circuit breaker. Safe for concurrent use.
type Breaker struct {
	url    string
	params Params
	clock  clockwork.Clock
	logger log.FieldLogger
	prober Prober

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	consecutiveSuccess  int
	totalRequests       int
	openedAt            time.Time
	responseTimes       *ringBuffer
}

// New creates a Breaker for url. A zero Params uses DefaultParams.
func New(url string, params Params, clock clockwork.Clock, logger log.FieldLogger) *Breaker {
	if params == (Params{}) {
		params = DefaultParams()
	}

	return &Breaker{
		url:           url,
		params:        params,
		clock:         clock,
		logger:        logger.WithField("component", "breaker").WithField("url", url),
		state:         StateClosed,
		responseTimes: newRingBuffer(responseTimeWindow),
	}
}

// SetProber installs a health probe consulted while the breaker is open.
func (b *Breaker) SetProber(p Prober) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prober = p
}

// State returns the breaker's current state, attempting the open->half-open
// transition first if eligible.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// RemainingOpenWindow returns how much longer the breaker will stay open, or
// zero if it is not open.
func (b *Breaker) RemainingOpenWindow() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0
	}
	remaining := b.params.OpenDuration - b.clock.Now().Sub(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state != StateOpen {
		return
	}

	elapsed := b.clock.Now().Sub(b.openedAt) >= b.params.OpenDuration
	probed := b.prober != nil && b.prober(b.url)

	if elapsed || probed {
		b.logger.Info("circuit breaker transitioning to half-open")
		b.state = StateHalfOpen
		b.consecutiveSuccess = 0
		b.consecutiveFailures = 0
	}
}

// Result is the outcome of one operation run through Execute.
type Result struct {
	Success      bool
	ResponseTime time.Duration
}

// Execute runs op under the breaker's gate. If the breaker is open and the
// open window has not elapsed (and no probe succeeded), it returns ErrOpen
// without invoking op. Otherwise op runs and its outcome updates the
// breaker's state.
func (b *Breaker) Execute(op func() (Result, error)) (Result, error) {
	b.mu.Lock()
	b.maybeHalfOpenLocked()
	if b.state == StateOpen {
		b.mu.Unlock()
		return Result{}, ErrOpen
	}
	b.mu.Unlock()

	result, err := op()

	b.record(result, err)

	return result, err
}

func (b *Breaker) record(result Result, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	success := err == nil && result.Success
	slow := result.ResponseTime > b.params.ResponseTimeThreshold
	if slow {
		success = false
	}

	b.responseTimes.add(result.ResponseTime)

	if success {
		b.consecutiveFailures = 0
		b.consecutiveSuccess++
	} else {
		b.consecutiveSuccess = 0
		b.consecutiveFailures++
	}

	switch b.state {
	case StateClosed:
		if b.totalRequests >= b.params.RequestVolumeThreshold &&
			(b.consecutiveFailures >= b.params.FailureThreshold || b.responseTimes.average() > b.params.ResponseTimeThreshold) {
			b.openLocked()
		}

	case StateHalfOpen:
		if !success {
			b.openLocked()
		} else if b.consecutiveSuccess >= b.params.SuccessThreshold {
			b.logger.Info("circuit breaker closing")
			b.state = StateClosed
			b.resetCountersLocked()
		}
	}
}

func (b *Breaker) openLocked() {
	b.logger.Warn("circuit breaker opening")
	b.state = StateOpen
	b.openedAt = b.clock.Now()
	b.resetCountersLocked()
}

func (b *Breaker) resetCountersLocked() {
	b.totalRequests = 0
	b.consecutiveFailures = 0
	b.consecutiveSuccess = 0
}
