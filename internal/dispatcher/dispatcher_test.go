// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/breaker"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/testlib"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubscription(url, secret string) *model.Subscription {
	return &model.Subscription{
		ID:            model.NewID(),
		URL:           url,
		Secret:        secret,
		TimeoutMillis: 5000,
	}
}

func testEvent() *model.Event {
	envelope := model.NewEnvelope("evt-1", 100, model.NewEventType(model.ObjectClassIssue, model.TransactionCreate), "ws-1", model.Transaction{
		Kind:        model.TransactionCreate,
		ObjectClass: model.ObjectClassIssue,
		ObjectID:    "I-1",
		Object:      map[string]interface{}{"title": "hi"},
	})
	payload, err := envelope.Marshal()
	if err != nil {
		panic(err)
	}

	return &model.Event{
		ID:       "evt-1",
		Type:     model.NewEventType(model.ObjectClassIssue, model.TransactionCreate),
		ObjectID: "I-1",
		Payload:  payload,
	}
}

func TestDeliverSuccess(t *testing.T) {
	var gotSignature, gotEventHeader, gotIDHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotEventHeader = r.Header.Get("X-Webhook-Event")
		gotIDHeader = r.Header.Get("X-Webhook-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "k")
	event := testEvent()

	outcome, attempt := d.Deliver(event, sub, b, 1)

	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusOK, outcome.HTTPStatus)
	assert.Equal(t, model.Sign(event.Payload, "k"), gotSignature)
	assert.Equal(t, string(event.Type), gotEventHeader)
	assert.Equal(t, event.ID, gotIDHeader)
	require.NotNil(t, attempt)
	assert.True(t, attempt.Success)
	assert.Equal(t, 1, attempt.AttemptNumber)
}

func TestDeliverPermanentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")
	event := testEvent()

	outcome, _ := d.Deliver(event, sub, b, 1)
	assert.False(t, outcome.Success)
	assert.False(t, outcome.Retryable)
	assert.Equal(t, http.StatusUnauthorized, outcome.HTTPStatus)
}

func TestDeliverRetryableServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")
	event := testEvent()

	outcome, _ := d.Deliver(event, sub, b, 1)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
}

func TestDeliverBreakerOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")

	for i := 0; i < 10; i++ {
		d.Deliver(testEvent(), sub, b, i+1)
	}
	require.Equal(t, breaker.StateOpen, b.State())

	outcome, attempt := d.Deliver(testEvent(), sub, b, 11)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
	assert.True(t, outcome.BreakerDeferral > 0)
	assert.False(t, attempt.Success)
}

func TestDeliverTooManyRequestsHonorsRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")
	event := testEvent()

	outcome, _ := d.Deliver(event, sub, b, 1)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
	assert.Equal(t, http.StatusTooManyRequests, outcome.HTTPStatus)
	assert.Equal(t, 2*time.Second, outcome.RetryAfter)
}

func TestDeliverTooManyRequestsWithoutRetryAfterFallsBackToBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")
	event := testEvent()

	outcome, _ := d.Deliver(event, sub, b, 1)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
	assert.Equal(t, time.Duration(0), outcome.RetryAfter)
}

func TestDeliverRedirectIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://example.com/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	d := New(clock, testlib.MakeLogger(t))
	b := breaker.New(server.URL, breaker.DefaultParams(), clock, testlib.MakeLogger(t))

	sub := testSubscription(server.URL, "")
	outcome, _ := d.Deliver(testEvent(), sub, b, 1)
	assert.False(t, outcome.Success)
	assert.False(t, outcome.Retryable)
}
