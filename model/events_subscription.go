// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// SubscriptionDeliveryStatus represents the delivery status of the last
// attempt made against a subscription, independent of any single Event.
type SubscriptionDeliveryStatus string

const (
	// SubscriptionDeliveryNone indicates no prior delivery for the subscription.
	SubscriptionDeliveryNone SubscriptionDeliveryStatus = ""
	// SubscriptionDeliverySucceeded indicates that the last delivery attempt succeeded.
	SubscriptionDeliverySucceeded SubscriptionDeliveryStatus = "succeeded"
	// SubscriptionDeliveryFailed indicates that the last delivery attempt failed.
	SubscriptionDeliveryFailed SubscriptionDeliveryStatus = "failed"
)

// EventTypeSet is a JSON-encoded set of EventTypes a Subscription is
// filtered to. Implemented as a map for O(1) membership tests on the
// delivery hot path.
type EventTypeSet map[EventType]bool

func NewEventTypeSet(types ...EventType) EventTypeSet {
	set := make(EventTypeSet, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func (s EventTypeSet) Value() (driver.Value, error) {
	types := make([]EventType, 0, len(s))
	for t := range s {
		types = append(types, t)
	}
	return json.Marshal(types)
}

func (s *EventTypeSet) Scan(databaseValue interface{}) error {
	var raw []byte
	switch value := databaseValue.(type) {
	case string:
		raw = []byte(value)
	case []byte:
		raw = value
	case nil:
		*s = EventTypeSet{}
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into EventTypeSet", databaseValue)
	}

	var types []EventType
	if err := json.Unmarshal(raw, &types); err != nil {
		return err
	}
	*s = NewEventTypeSet(types...)
	return nil
}

// MarshalJSON renders the set as a JSON array, in no particular order, rather
// than an object, matching the wire shape operators configure subscriptions
// with.
func (s EventTypeSet) MarshalJSON() ([]byte, error) {
	types := make([]EventType, 0, len(s))
	for t := range s {
		types = append(types, t)
	}
	return json.Marshal(types)
}

func (s *EventTypeSet) UnmarshalJSON(data []byte) error {
	var types []EventType
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}
	*s = NewEventTypeSet(types...)
	return nil
}

// Scope restricts which document changes become Events for a Subscription.
// Both filters, when set, apply conjunctively: a transaction must satisfy
// the space filter AND the projects filter to match.
type Scope struct {
	Space    string   `json:"space,omitempty"`
	Projects []string `json:"projects,omitempty"`
}

// HasSpaceFilter reports whether the scope restricts by space id.
func (s Scope) HasSpaceFilter() bool {
	return s.Space != ""
}

// HasProjectsFilter reports whether the scope restricts by project id.
func (s Scope) HasProjectsFilter() bool {
	return len(s.Projects) > 0
}

// IsEmpty reports whether the scope applies no restriction at all.
func (s Scope) IsEmpty() bool {
	return !s.HasSpaceFilter() && !s.HasProjectsFilter()
}

func (s Scope) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Scope) Scan(databaseValue interface{}) error {
	switch value := databaseValue.(type) {
	case string:
		if value == "" {
			return nil
		}
		return json.Unmarshal([]byte(value), s)
	case []byte:
		if len(value) == 0 {
			return nil
		}
		return json.Unmarshal(value, s)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into Scope", databaseValue)
	}
}

// Subscription is a configured delivery target: URL, secret, filters,
// limits. Long-lived; created and edited by operators.
type Subscription struct {
	ID      string
	Name    string
	URL     string
	OwnerID string

	// Secret is the opaque HMAC key used to sign outbound payloads. Empty
	// means deliveries to this Subscription are unsigned.
	Secret string

	Enabled    bool
	EventTypes EventTypeSet
	Scope      Scope

	RetryAttempts   int
	TimeoutMillis   int64
	RateLimit       int
	RateLimitPeriod int64

	Headers Headers

	LastDeliveryStatus    SubscriptionDeliveryStatus
	LastDeliveryAttemptAt int64

	CreateAt int64
	DeleteAt int64

	LockAcquiredBy *string
	LockAcquiredAt int64
}

// IsDeleted returns true if the subscription is deleted.
func (s Subscription) IsDeleted() bool {
	return s.DeleteAt > 0
}

// IsDispatchable returns true if the subscription can receive new
// deliveries: present, enabled, and not soft-deleted.
func (s Subscription) IsDispatchable() bool {
	return s.Enabled && !s.IsDeleted()
}

// AcceptsEventType reports whether the subscription's event-type filter
// matches the given type. An empty filter matches nothing; subscriptions
// must explicitly opt into event types.
func (s Subscription) AcceptsEventType(t EventType) bool {
	return s.EventTypes[t]
}

// SubscriptionsFilter is a filter for subscription queries.
type SubscriptionsFilter struct {
	Paging
	Owner     string
	EventType EventType
}

// NewSubscriptionFromReader will create a Subscription from an
// io.Reader with JSON data.
func NewSubscriptionFromReader(reader io.Reader) (*Subscription, error) {
	var subscription Subscription
	err := json.NewDecoder(reader).Decode(&subscription)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode Subscription")
	}

	return &subscription, nil
}

// NewSubscriptionsFromReader will create a slice of Subscriptions from an
// io.Reader with JSON data.
func NewSubscriptionsFromReader(reader io.Reader) ([]*Subscription, error) {
	subscriptions := []*Subscription{}
	err := json.NewDecoder(reader).Decode(&subscriptions)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode Subscriptions")
	}

	return subscriptions, nil
}
