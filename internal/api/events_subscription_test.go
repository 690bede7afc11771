// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/api"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/store"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/testlib"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*model.Client, *store.SQLStore) {
	logger := testlib.MakeLogger(t)
	sqlStore := store.MakeTestSQLStore(t, logger)

	router := mux.NewRouter()
	api.Register(router, &api.Context{Store: sqlStore, Logger: logger}, prometheus.NewRegistry())

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return model.NewClient(ts.URL), sqlStore
}

func TestCreateGetDeleteSubscription(t *testing.T) {
	client, _ := newTestServer(t)

	req := &model.CreateSubscriptionRequest{
		Name:          "my sub",
		URL:           "https://example.com/hook",
		OwnerID:       "owner-1",
		Secret:        "shh",
		Enabled:       true,
		EventTypes:    []model.EventType{model.NewEventType(model.ObjectClassIssue, model.TransactionCreate)},
		RetryAttempts: 5,
	}

	sub, err := client.CreateSubscription(req)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, req.Name, sub.Name)
	assert.Equal(t, req.URL, sub.URL)
	assert.Equal(t, 5, sub.RetryAttempts)

	fetched, err := client.GetSubscription(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, fetched.ID)

	t.Run("returns nil on not found", func(t *testing.T) {
		notFound, errGet := client.GetSubscription(model.NewID())
		require.NoError(t, errGet)
		assert.Nil(t, notFound)
	})

	err = client.DeleteSubscription(sub.ID)
	require.NoError(t, err)

	t.Run("fails to delete twice", func(t *testing.T) {
		errDelete := client.DeleteSubscription(sub.ID)
		require.Error(t, errDelete)
	})

	deleted, err := client.GetSubscription(sub.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.True(t, deleted.IsDeleted())
}

func TestCreateSubscriptionValidationFailure(t *testing.T) {
	client, _ := newTestServer(t)

	_, err := client.CreateSubscription(&model.CreateSubscriptionRequest{URL: "not-a-url"})
	require.Error(t, err)
}

func TestListSubscriptionsFiltersByOwner(t *testing.T) {
	client, _ := newTestServer(t)

	_, err := client.CreateSubscription(&model.CreateSubscriptionRequest{
		URL: "https://a.example.com", OwnerID: "owner-a",
		EventTypes: []model.EventType{model.NewEventType(model.ObjectClassIssue, model.TransactionCreate)},
	})
	require.NoError(t, err)
	_, err = client.CreateSubscription(&model.CreateSubscriptionRequest{
		URL: "https://b.example.com", OwnerID: "owner-b",
		EventTypes: []model.EventType{model.NewEventType(model.ObjectClassIssue, model.TransactionCreate)},
	})
	require.NoError(t, err)

	subs, err := client.ListSubscriptions(&model.ListSubscriptionsRequest{
		Paging: model.AllPagesNotDeleted(),
		Owner:  "owner-a",
	})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "owner-a", subs[0].OwnerID)
}
