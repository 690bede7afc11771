// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package api exposes the minimal operational HTTP surface an operator
// needs to drive the delivery core end to end: Subscription CRUD, a
// read-only Event/DeliveryAttempt inspection surface for dead-lettered
// Events, a health endpoint, and Prometheus scraping.
package api

import (
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/sirupsen/logrus"
)

// Store describes the persistence operations the API surface needs.
type Store interface {
	CreateSubscription(sub *model.Subscription) error
	GetSubscription(id string) (*model.Subscription, error)
	GetSubscriptions(filter *model.SubscriptionsFilter) ([]*model.Subscription, error)
	UpdateSubscription(sub *model.Subscription) error
	DeleteSubscription(id string) error

	GetEvent(id string) (*model.Event, error)
	GetEvents(filter *model.EventsFilter) ([]*model.Event, error)
	GetDeliveryAttempts(eventID string) ([]*model.DeliveryAttempt, error)
}

// Context carries the dependencies a request handler needs. It is cloned
// before each request so per-request changes, such as logger annotations,
// never leak across requests.
type Context struct {
	Store     Store
	RequestID string
	Logger    logrus.FieldLogger
}

// Clone creates a shallow copy of the context for a single request.
func (c *Context) Clone() *Context {
	return &Context{
		Store:  c.Store,
		Logger: c.Logger,
	}
}
