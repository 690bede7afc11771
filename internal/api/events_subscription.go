// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
)

// initSubscription registers subscription endpoints on the given router.
func initSubscription(apiRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	subscriptionsRouter := apiRouter.PathPrefix("/subscriptions").Subrouter()
	subscriptionsRouter.Handle("", addContext(handleListSubscriptions)).Methods(http.MethodGet)
	subscriptionsRouter.Handle("", addContext(handleRegisterSubscription)).Methods(http.MethodPost)

	subscriptionRouter := apiRouter.PathPrefix("/subscription/{subscription}").Subrouter()
	subscriptionRouter.Handle("", addContext(handleGetSubscription)).Methods(http.MethodGet)
	subscriptionRouter.Handle("", addContext(handleUpdateSubscription)).Methods(http.MethodPut)
	subscriptionRouter.Handle("", addContext(handleDeleteSubscription)).Methods(http.MethodDelete)
}

// handleRegisterSubscription responds to POST /api/subscriptions, validating
// and registering a new Subscription.
func handleRegisterSubscription(c *Context, w http.ResponseWriter, r *http.Request) {
	createSubReq, err := model.NewCreateSubscriptionRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Error("failed to decode request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sub, err := createSubReq.ToSubscription()
	if err != nil {
		c.Logger.WithError(err).Warn("subscription request failed validation")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := c.Store.CreateSubscription(&sub); err != nil {
		c.Logger.WithError(err).Error("failed to create subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	outputJSON(c, w, sub)
}

// handleListSubscriptions responds to GET /api/subscriptions.
func handleListSubscriptions(c *Context, w http.ResponseWriter, r *http.Request) {
	paging, err := parsePaging(r.URL)
	if err != nil {
		c.Logger.WithError(err).Error("failed to parse paging parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filter := &model.SubscriptionsFilter{
		Paging:    paging,
		Owner:     r.URL.Query().Get("owner"),
		EventType: model.EventType(r.URL.Query().Get("event_type")),
	}

	subscriptions, err := c.Store.GetSubscriptions(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query subscriptions")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if subscriptions == nil {
		subscriptions = []*model.Subscription{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, subscriptions)
}

// handleGetSubscription responds to GET /api/subscription/{subscription}.
func handleGetSubscription(c *Context, w http.ResponseWriter, r *http.Request) {
	subID := mux.Vars(r)["subscription"]
	c.Logger = c.Logger.WithField("subscription", subID)

	subscription, err := c.Store.GetSubscription(subID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if subscription == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, subscription)
}

// handleUpdateSubscription responds to PUT /api/subscription/{subscription},
// overwriting the mutable fields of an existing Subscription (URL, secret,
// scope, event types, retry/timeout/rate-limit settings, headers).
func handleUpdateSubscription(c *Context, w http.ResponseWriter, r *http.Request) {
	subID := mux.Vars(r)["subscription"]
	c.Logger = c.Logger.WithField("subscription", subID)

	existing, err := c.Store.GetSubscription(subID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if existing == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	updateReq, err := model.NewCreateSubscriptionRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Error("failed to decode request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	updated, err := updateReq.ToSubscription()
	if err != nil {
		c.Logger.WithError(err).Warn("subscription update failed validation")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	updated.ID = existing.ID
	updated.CreateAt = existing.CreateAt
	updated.LastDeliveryStatus = existing.LastDeliveryStatus
	updated.LastDeliveryAttemptAt = existing.LastDeliveryAttemptAt

	if err := c.Store.UpdateSubscription(&updated); err != nil {
		c.Logger.WithError(err).Error("failed to update subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, updated)
}

// handleDeleteSubscription responds to DELETE /api/subscription/{subscription}.
func handleDeleteSubscription(c *Context, w http.ResponseWriter, r *http.Request) {
	subID := mux.Vars(r)["subscription"]
	c.Logger = c.Logger.WithField("subscription", subID)

	subscription, err := c.Store.GetSubscription(subID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if subscription == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if subscription.IsDeleted() {
		c.Logger.Warn("unable to delete subscription that is already deleted")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := c.Store.DeleteSubscription(subID); err != nil {
		c.Logger.WithError(err).Error("failed to delete subscription")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
