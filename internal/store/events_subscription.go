// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/pkg/errors"
)

const subscriptionTable = "Subscription"

var subscriptionColumns = []string{
	"ID",
	"Name",
	"URL",
	"OwnerID",
	"Secret",
	"Enabled",
	"EventTypes",
	"Scope",
	"RetryAttempts",
	"TimeoutMillis",
	"RateLimit",
	"RateLimitPeriod",
	"Headers",
	"LastDeliveryStatus",
	"LastDeliveryAttemptAt",
	"CreateAt",
	"DeleteAt",
	"LockAcquiredBy",
	"LockAcquiredAt",
}

var subscriptionSelect = sq.Select(subscriptionColumns...).From(subscriptionTable)

// CreateSubscription creates a new subscription.
func (sqlStore *SQLStore) CreateSubscription(sub *model.Subscription) error {
	sub.ID = model.NewID()
	sub.CreateAt = model.GetMillis()

	headers, err := sub.Headers.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal headers")
	}
	eventTypes, err := sub.EventTypes.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal event types")
	}
	scope, err := sub.Scope.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal scope")
	}

	_, err = sqlStore.execBuilder(sqlStore.db, sq.Insert(subscriptionTable).
		SetMap(map[string]interface{}{
			"ID":                    sub.ID,
			"Name":                  sub.Name,
			"URL":                   sub.URL,
			"OwnerID":               sub.OwnerID,
			"Secret":                sub.Secret,
			"Enabled":               sub.Enabled,
			"EventTypes":            eventTypes,
			"Scope":                 scope,
			"RetryAttempts":         sub.RetryAttempts,
			"TimeoutMillis":         sub.TimeoutMillis,
			"RateLimit":             sub.RateLimit,
			"RateLimitPeriod":       sub.RateLimitPeriod,
			"Headers":               headers,
			"LastDeliveryStatus":    sub.LastDeliveryStatus,
			"LastDeliveryAttemptAt": sub.LastDeliveryAttemptAt,
			"CreateAt":              sub.CreateAt,
			"DeleteAt":              sub.DeleteAt,
			"LockAcquiredBy":        sub.LockAcquiredBy,
			"LockAcquiredAt":        sub.LockAcquiredAt,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create subscription")
	}

	return nil
}

// GetSubscription fetches a subscription by ID.
func (sqlStore *SQLStore) GetSubscription(id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := sqlStore.getBuilder(sqlStore.db, &sub, subscriptionSelect.Where("ID = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subscription")
	}

	return &sub, nil
}

// GetSubscriptions fetches subscriptions matching the given filter.
func (sqlStore *SQLStore) GetSubscriptions(filter *model.SubscriptionsFilter) ([]*model.Subscription, error) {
	return sqlStore.getSubscriptions(sqlStore.db, filter)
}

func (sqlStore *SQLStore) getSubscriptions(db queryer, filter *model.SubscriptionsFilter) ([]*model.Subscription, error) {
	query := subscriptionSelect.OrderBy("CreateAt DESC")
	query = applyPagingFilter(query, filter.Paging)

	if filter.Owner != "" {
		query = query.Where("OwnerID = ?", filter.Owner)
	}

	subs := []*model.Subscription{}
	err := sqlStore.selectBuilder(db, &subs, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subscriptions")
	}

	if filter.EventType != "" {
		filtered := make([]*model.Subscription, 0, len(subs))
		for _, sub := range subs {
			if sub.AcceptsEventType(filter.EventType) {
				filtered = append(filtered, sub)
			}
		}
		return filtered, nil
	}

	return subs, nil
}

// GetSubscriptionsForEventType fetches enabled, non-deleted subscriptions
// whose event-type filter accepts the given type. Matching against the
// JSON-encoded EventTypes column is done in process rather than in SQL,
// since the set of accepted types is closed and subscription counts are
// small relative to event volume.
func (sqlStore *SQLStore) GetSubscriptionsForEventType(eventType model.EventType) ([]*model.Subscription, error) {
	query := subscriptionSelect.
		Where("Enabled = ?", true).
		Where("DeleteAt = 0")

	subs := []*model.Subscription{}
	err := sqlStore.selectBuilder(sqlStore.db, &subs, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subscriptions")
	}

	matching := make([]*model.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.AcceptsEventType(eventType) {
			matching = append(matching, sub)
		}
	}

	return matching, nil
}

// UpdateSubscription updates the mutable fields of a subscription.
func (sqlStore *SQLStore) UpdateSubscription(sub *model.Subscription) error {
	headers, err := sub.Headers.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal headers")
	}
	eventTypes, err := sub.EventTypes.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal event types")
	}
	scope, err := sub.Scope.Value()
	if err != nil {
		return errors.Wrap(err, "failed to marshal scope")
	}

	_, err = sqlStore.execBuilder(sqlStore.db, sq.Update(subscriptionTable).
		SetMap(map[string]interface{}{
			"Name":            sub.Name,
			"URL":             sub.URL,
			"Secret":          sub.Secret,
			"Enabled":         sub.Enabled,
			"EventTypes":      eventTypes,
			"Scope":           scope,
			"RetryAttempts":   sub.RetryAttempts,
			"TimeoutMillis":   sub.TimeoutMillis,
			"RateLimit":       sub.RateLimit,
			"RateLimitPeriod": sub.RateLimitPeriod,
			"Headers":         headers,
		}).
		Where("ID = ?", sub.ID).
		Where("DeleteAt = 0"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update subscription")
	}

	return nil
}

// UpdateSubscriptionDeliveryStatus records the outcome of the most recent
// delivery attempt against a subscription, independent of any single Event.
func (sqlStore *SQLStore) UpdateSubscriptionDeliveryStatus(id string, status model.SubscriptionDeliveryStatus, attemptAt int64) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.Update(subscriptionTable).
		SetMap(map[string]interface{}{
			"LastDeliveryStatus":    status,
			"LastDeliveryAttemptAt": attemptAt,
		}).
		Where("ID = ?", id),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update subscription delivery status")
	}

	return nil
}

// DeleteSubscription marks the given subscription as deleted.
func (sqlStore *SQLStore) DeleteSubscription(id string) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(subscriptionTable).
		Set("DeleteAt", model.GetMillis()).
		Where("ID = ?", id).
		Where("DeleteAt = 0"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark subscription as deleted")
	}

	return nil
}
