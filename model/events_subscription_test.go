// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSubscriptionFromReader(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		subscription, err := NewSubscriptionFromReader(bytes.NewReader([]byte(
			"",
		)))
		require.NoError(t, err)
		require.Equal(t, &Subscription{}, subscription)
	})

	t.Run("invalid", func(t *testing.T) {
		subscription, err := NewSubscriptionFromReader(bytes.NewReader([]byte(
			"{test",
		)))
		require.Error(t, err)
		require.Nil(t, subscription)
	})

	t.Run("valid", func(t *testing.T) {
		subscription, err := NewSubscriptionFromReader(bytes.NewReader([]byte(
			`{"ID":"abcd", "Name":"test", "URL":"http://events", "OwnerID":"owner", "Enabled":true, "RetryAttempts":3, "CreateAt":300, "DeleteAt":400}`,
		)))
		require.NoError(t, err)
		require.Equal(t, &Subscription{
			ID:            "abcd",
			Name:          "test",
			URL:           "http://events",
			OwnerID:       "owner",
			Enabled:       true,
			RetryAttempts: 3,
			CreateAt:      300,
			DeleteAt:      400,
		}, subscription)
	})
}

func TestNewSubscriptionsFromReader(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		subscriptions, err := NewSubscriptionsFromReader(bytes.NewReader([]byte(
			"",
		)))
		require.NoError(t, err)
		require.Equal(t, []*Subscription{}, subscriptions)
	})

	t.Run("invalid", func(t *testing.T) {
		subscriptions, err := NewSubscriptionsFromReader(bytes.NewReader([]byte(
			"{test",
		)))
		require.Error(t, err)
		require.Nil(t, subscriptions)
	})

	t.Run("valid", func(t *testing.T) {
		subscriptions, err := NewSubscriptionsFromReader(bytes.NewReader([]byte(
			`[{"ID":"abcd"},{"ID":"efgh"}]`,
		)))
		require.NoError(t, err)
		require.Equal(t, []*Subscription{
			{ID: "abcd"},
			{ID: "efgh"},
		}, subscriptions)
	})
}

func TestSubscriptionAcceptsEventType(t *testing.T) {
	sub := Subscription{
		Enabled:    true,
		EventTypes: NewEventTypeSet("Issue.created", "Issue.updated"),
	}

	require.True(t, sub.AcceptsEventType("Issue.created"))
	require.False(t, sub.AcceptsEventType("Issue.deleted"))
}

func TestScopeConjunction(t *testing.T) {
	empty := Scope{}
	require.True(t, empty.IsEmpty())

	spaceOnly := Scope{Space: "S-1"}
	require.True(t, spaceOnly.HasSpaceFilter())
	require.False(t, spaceOnly.HasProjectsFilter())

	both := Scope{Space: "S-1", Projects: []string{"P-1"}}
	require.True(t, both.HasSpaceFilter())
	require.True(t, both.HasProjectsFilter())
}
