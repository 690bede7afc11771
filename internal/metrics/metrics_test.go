// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDeliveryMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.AttemptsTotal.WithLabelValues("sub-1", "success").Inc()
	m.AttemptsTotal.WithLabelValues("sub-1", "retryable").Inc()
	m.DeadLetteredTotal.WithLabelValues("sub-1", "retries_exhausted").Inc()
	m.RateLimitDeferrals.WithLabelValues("sub-1").Inc()
	m.QueueDepth.Set(3)
	m.BreakerState.WithLabelValues("https://example.com/hook").Set(BreakerStateValue("open"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("sub-1", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeadLetteredTotal.WithLabelValues("sub-1", "retries_exhausted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitDeferrals.WithLabelValues("sub-1")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BreakerState.WithLabelValues("https://example.com/hook")))
}

func TestBreakerStateValue(t *testing.T) {
	assert.Equal(t, float64(0), BreakerStateValue("closed"))
	assert.Equal(t, float64(1), BreakerStateValue("half-open"))
	assert.Equal(t, float64(2), BreakerStateValue("open"))
	assert.Equal(t, float64(-1), BreakerStateValue("unknown"))
}
