// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
)

// initEvent registers the read-only Event inspection endpoints, primarily
// used by operators to inspect dead-lettered Events and retain their
// lastError.
func initEvent(apiRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	eventsRouter := apiRouter.PathPrefix("/events").Subrouter()
	eventsRouter.Handle("", addContext(handleListEvents)).Methods(http.MethodGet)

	eventRouter := apiRouter.PathPrefix("/event/{event}").Subrouter()
	eventRouter.Handle("", addContext(handleGetEvent)).Methods(http.MethodGet)
	eventRouter.Handle("/attempts", addContext(handleGetEventDeliveryAttempts)).Methods(http.MethodGet)
}

// handleListEvents responds to GET /api/events, optionally filtered by
// subscription_id and status (e.g. status=dead-lettered).
func handleListEvents(c *Context, w http.ResponseWriter, r *http.Request) {
	paging, err := parsePaging(r.URL)
	if err != nil {
		c.Logger.WithError(err).Error("failed to parse paging parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filter := &model.EventsFilter{
		Paging:         paging,
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		Status:         model.EventStatus(r.URL.Query().Get("status")),
	}

	events, err := c.Store.GetEvents(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query events")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*model.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, events)
}

// handleGetEvent responds to GET /api/event/{event}, returning the Event
// including its terminal lastError if dead-lettered.
func handleGetEvent(c *Context, w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["event"]
	c.Logger = c.Logger.WithField("event", eventID)

	event, err := c.Store.GetEvent(eventID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query event")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if event == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, event)
}

// handleGetEventDeliveryAttempts responds to GET /api/event/{event}/attempts,
// returning the full attempt history for an Event.
func handleGetEventDeliveryAttempts(c *Context, w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["event"]
	c.Logger = c.Logger.WithField("event", eventID)

	attempts, err := c.Store.GetDeliveryAttempts(eventID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query delivery attempts")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []*model.DeliveryAttempt{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	outputJSON(c, w, attempts)
}
