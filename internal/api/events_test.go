// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api_test

import (
	"testing"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEventAndListEvents(t *testing.T) {
	client, sqlStore := newTestServer(t)

	sub, err := client.CreateSubscription(&model.CreateSubscriptionRequest{
		URL: "https://example.com/hook", OwnerID: "owner-1",
		EventTypes: []model.EventType{model.NewEventType(model.ObjectClassIssue, model.TransactionCreate)},
	})
	require.NoError(t, err)

	event := &model.Event{
		SubscriptionID:   sub.ID,
		Type:             model.NewEventType(model.ObjectClassIssue, model.TransactionCreate),
		ObjectID:         "I-1",
		ObjectClass:      model.ObjectClassIssue,
		Payload:          []byte(`{}`),
		Status:           model.EventStatusDeadLettered,
		Attempts:         4,
		LastError:        "endpoint unreachable",
		NextAttemptAfter: 0,
	}
	require.NoError(t, sqlStore.CreateEvent(event))

	fetched, err := client.GetEvent(event.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "endpoint unreachable", fetched.LastError)
	assert.Equal(t, model.EventStatusDeadLettered, fetched.Status)

	t.Run("returns nil on not found", func(t *testing.T) {
		notFound, errGet := client.GetEvent(model.NewID())
		require.NoError(t, errGet)
		assert.Nil(t, notFound)
	})

	events, err := client.ListEvents(&model.ListEventsRequest{
		Paging: model.AllPagesNotDeleted(),
		Status: model.EventStatusDeadLettered,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)

	require.NoError(t, sqlStore.CreateDeliveryAttempt(&model.DeliveryAttempt{
		EventID:       event.ID,
		AttemptNumber: 1,
		HTTPStatus:    503,
		Success:       false,
		Error:         "service unavailable",
	}))

	attempts, err := client.GetEventDeliveryAttempts(event.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 503, attempts[0].HTTPStatus)
}
