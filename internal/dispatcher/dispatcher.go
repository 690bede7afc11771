// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package dispatcher executes one HTTP delivery attempt against a
// Subscription's endpoint: it signs the payload, performs the POST through
// the endpoint's circuit breaker, classifies the outcome, and produces the
// DeliveryAttempt record the scheduler persists.
package dispatcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/breaker"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Outcome is the classified result of one delivery attempt.
type Outcome struct {
	Success      bool
	Retryable    bool
	HTTPStatus   int
	ResponseTime time.Duration
	Error        string
	ResponseBody string

	// RetryAfter, when set, overrides backoff computation: the scheduler
	// should set nextAttemptAfter to now+RetryAfter directly (capped by
	// maxDelay), per a 429 response's Retry-After header.
	RetryAfter time.Duration

	// BreakerDeferral, when non-zero, is the circuit breaker's remaining
	// open window: the event should be deferred by exactly this much
	// rather than going through normal backoff computation.
	BreakerDeferral time.Duration
}

// Dispatcher performs delivery attempts.
type Dispatcher struct {
	clock  clockwork.Clock
	logger log.FieldLogger
	client *http.Client
}

// New constructs a Dispatcher. The returned client's Timeout is left at
// zero; each attempt derives a per-request context deadline from the
// Subscription's configured timeout instead, since timeout is per-endpoint
// configuration, not a dispatcher-wide constant, and the same client is
// reused across attempts so connections are pooled rather than rebuilt.
func New(clock clockwork.Clock, logger log.FieldLogger) *Dispatcher {
	return &Dispatcher{
		clock:  clock,
		logger: logger.WithField("component", "dispatcher"),
		client: &http.Client{},
	}
}

// Deliver performs one HTTP delivery attempt for event against sub, gated by
// br, and returns the outcome plus the DeliveryAttempt record to persist.
// AttemptNumber must be supplied by the caller (the scheduler), since it is
// derived from the Event's own attempt counter.
func (d *Dispatcher) Deliver(event *model.Event, sub *model.Subscription, br *breaker.Breaker, attemptNumber int) (Outcome, *model.DeliveryAttempt) {
	logger := d.logger.WithFields(log.Fields{
		"eventId": event.ID,
		"url":     sub.URL,
	})

	timeout := time.Duration(sub.TimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var outcome Outcome
	breakerResult, execErr := br.Execute(func() (breaker.Result, error) {
		start := d.clock.Now()
		status, body, retryAfter, respErr := d.post(event, sub, timeout)
		elapsed := d.clock.Now().Sub(start)

		outcome = classify(status, respErr, elapsed, timeout)
		outcome.HTTPStatus = status
		outcome.ResponseTime = elapsed
		outcome.ResponseBody = body
		if status == http.StatusTooManyRequests {
			outcome.RetryAfter = retryAfter
		}
		if respErr != nil {
			outcome.Error = respErr.Error()
		} else if status >= 400 {
			outcome.Error = "http status " + strconv.Itoa(status)
		}

		return breaker.Result{Success: outcome.Success, ResponseTime: elapsed}, respErr
	})

	if execErr == breaker.ErrOpen {
		logger.Warn("circuit breaker open, deferring delivery")
		outcome = Outcome{
			Success:         false,
			Retryable:       true,
			Error:           "circuit breaker open",
			BreakerDeferral: br.RemainingOpenWindow(),
		}
	}

	attempt := &model.DeliveryAttempt{
		EventID:       event.ID,
		AttemptNumber: attemptNumber,
		Timestamp:     d.clock.Now().UnixMilli(),
		HTTPStatus:    outcome.HTTPStatus,
		ResponseTime:  outcome.ResponseTime.Milliseconds(),
		Success:       outcome.Success,
		Error:         outcome.Error,
		ResponseBody:  outcome.ResponseBody,
	}

	return outcome, attempt
}

func (d *Dispatcher) post(event *model.Event, sub *model.Subscription, timeout time.Duration) (status int, body string, retryAfter time.Duration, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(event.Payload))
	if err != nil {
		return 0, "", 0, errors.Wrap(err, "failed to build delivery request")
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Webhook-Event", string(event.Type))
	req.Header.Set("X-Webhook-Id", event.ID)
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Signature", model.Sign(event.Payload, sub.Secret))
	}
	for key, value := range sub.Headers.Resolve() {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), d.clock)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, model.MaxResponseBodyCapture))
	if err != nil {
		return resp.StatusCode, "", retryAfter, errors.Wrap(err, "failed to read response body")
	}

	return resp.StatusCode, string(raw), retryAfter, nil
}

// parseRetryAfter interprets a Retry-After header value, which per RFC 9110
// is either a number of seconds or an HTTP-date. An unparsable or absent
// value yields zero, leaving the caller to fall back to computed backoff.
func parseRetryAfter(value string, clock clockwork.Clock) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := when.Sub(clock.Now()); delay > 0 {
			return delay
		}
	}
	return 0
}

// classify implements the retryable-vs-permanent table of spec §4.2/§4.3.
// It never inspects BreakerDeferral/RetryAfter, which callers that see a
// breaker-open rejection or a 429 populate separately.
func classify(status int, err error, elapsed, timeout time.Duration) Outcome {
	if err != nil {
		return Outcome{Success: false, Retryable: true}
	}

	switch {
	case status >= 200 && status < 300:
		return Outcome{Success: true}

	case status >= 300 && status < 400:
		// Webhooks do not follow redirects; treated as permanent failure.
		return Outcome{Success: false, Retryable: false}

	case status == http.StatusRequestTimeout, status == http.StatusTooEarly, status == http.StatusTooManyRequests:
		return Outcome{Success: false, Retryable: true}

	case status >= 400 && status < 500:
		return Outcome{Success: false, Retryable: false}

	case status >= 500:
		return Outcome{Success: false, Retryable: true}

	default:
		return Outcome{Success: false, Retryable: false}
	}
}
