// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package breaker

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/testlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		FailureThreshold:       5,
		SuccessThreshold:       3,
		OpenDuration:           60 * time.Second,
		RequestVolumeThreshold: 10,
		ResponseTimeThreshold:  10 * time.Second,
		HealthCheckInterval:    30 * time.Second,
	}
}

func fail(b *Breaker) {
	_, _ = b.Execute(func() (Result, error) {
		return Result{Success: false}, nil
	})
}

func succeed(b *Breaker) {
	_, _ = b.Execute(func() (Result, error) {
		return Result{Success: true, ResponseTime: time.Millisecond}, nil
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := New("https://x/hook", testParams(), clock, testlib.MakeLogger(t))

	for i := 0; i < 5; i++ {
		succeed(b)
	}
	assert.Equal(t, StateClosed, b.State())

	for i := 0; i < 5; i++ {
		fail(b)
	}

	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := New("https://x/hook", testParams(), clock, testlib.MakeLogger(t))

	for i := 0; i < 10; i++ {
		fail(b)
	}
	require.Equal(t, StateOpen, b.State())

	_, err := b.Execute(func() (Result, error) {
		t.Fatal("op should not run while breaker is open")
		return Result{}, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerHalfOpenThenCloses(t *testing.T) {
	clock := clockwork.NewFakeClock()
	params := testParams()
	b := New("https://x/hook", params, clock, testlib.MakeLogger(t))

	for i := 0; i < 10; i++ {
		fail(b)
	}
	require.Equal(t, StateOpen, b.State())

	clock.Advance(params.OpenDuration + time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	succeed(b)
	succeed(b)
	assert.Equal(t, StateHalfOpen, b.State())
	succeed(b)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenReopensOnFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	params := testParams()
	b := New("https://x/hook", params, clock, testlib.MakeLogger(t))

	for i := 0; i < 10; i++ {
		fail(b)
	}
	clock.Advance(params.OpenDuration + time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	fail(b)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerOpensOnSlowResponses(t *testing.T) {
	clock := clockwork.NewFakeClock()
	params := testParams()
	b := New("https://x/hook", params, clock, testlib.MakeLogger(t))

	for i := 0; i < 10; i++ {
		_, _ = b.Execute(func() (Result, error) {
			return Result{Success: true, ResponseTime: 20 * time.Second}, nil
		})
	}

	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerProberOpensHalf(t *testing.T) {
	clock := clockwork.NewFakeClock()
	params := testParams()
	b := New("https://x/hook", params, clock, testlib.MakeLogger(t))

	for i := 0; i < 10; i++ {
		fail(b)
	}
	require.Equal(t, StateOpen, b.State())

	b.SetProber(func(url string) bool { return true })
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestManagerReusesBreakerPerURL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(testParams(), clock, testlib.MakeLogger(t))

	b1 := m.Get("https://x/hook")
	b2 := m.Get("https://x/hook")
	assert.Same(t, b1, b2)

	b3 := m.Get("https://y/hook")
	assert.NotSame(t, b1, b3)

	states := m.States()
	assert.Len(t, states, 2)
}
