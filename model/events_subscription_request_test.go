// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCreateSubscriptionRequestFromReader(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		createSubscriptionRequest, err := NewCreateSubscriptionRequestFromReader(bytes.NewReader([]byte(
			"",
		)))
		require.NoError(t, err)
		require.Equal(t, &CreateSubscriptionRequest{}, createSubscriptionRequest)
	})

	t.Run("invalid", func(t *testing.T) {
		createSubscriptionRequest, err := NewCreateSubscriptionRequestFromReader(bytes.NewReader([]byte(
			"{test",
		)))
		require.Error(t, err)
		require.Nil(t, createSubscriptionRequest)
	})

	t.Run("valid", func(t *testing.T) {
		createSubscriptionRequest, err := NewCreateSubscriptionRequestFromReader(bytes.NewReader([]byte(
			`{"Name":"test","URL":"http://test", "OwnerID":"owner","RetryAttempts":5}`,
		)))
		require.NoError(t, err)
		require.Equal(t, &CreateSubscriptionRequest{
			Name:          "test",
			URL:           "http://test",
			OwnerID:       "owner",
			RetryAttempts: 5,
		}, createSubscriptionRequest)
	})
}

func TestCreateSubscriptionRequestToSubscription(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := CreateSubscriptionRequest{
			Name:       "test",
			URL:        "https://example.com/hook",
			OwnerID:    "owner-1",
			EventTypes: []EventType{"Issue.created"},
		}

		sub, err := req.ToSubscription()
		require.NoError(t, err)
		require.Equal(t, "https://example.com/hook", sub.URL)
		require.True(t, sub.AcceptsEventType("Issue.created"))
		require.Equal(t, int64(DefaultTimeoutMillis), sub.TimeoutMillis)
	})

	t.Run("invalid URL", func(t *testing.T) {
		req := CreateSubscriptionRequest{URL: "://bad", OwnerID: "owner-1", EventTypes: []EventType{"Issue.created"}}
		_, err := req.ToSubscription()
		require.Error(t, err)
	})

	t.Run("missing owner", func(t *testing.T) {
		req := CreateSubscriptionRequest{URL: "https://example.com", EventTypes: []EventType{"Issue.created"}}
		_, err := req.ToSubscription()
		require.Error(t, err)
	})

	t.Run("missing event types", func(t *testing.T) {
		req := CreateSubscriptionRequest{URL: "https://example.com", OwnerID: "owner-1"}
		_, err := req.ToSubscription()
		require.Error(t, err)
	})
}
