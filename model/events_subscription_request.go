// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"
	"net/url"

	"github.com/pkg/errors"
)

const (
	// DefaultRetryAttempts is the default of the CLI's --retry-attempts flag.
	// ToSubscription does not apply it: a request whose RetryAttempts is
	// zero, set or omitted, yields a Subscription with no retries.
	DefaultRetryAttempts = 3
	// DefaultTimeoutMillis is used when a CreateSubscriptionRequest omits TimeoutMillis.
	DefaultTimeoutMillis = 30000
)

// CreateSubscriptionRequest represents a request to create a Subscription.
// Validation happens here, at write time, so the delivery path never needs
// to handle a malformed Subscription (spec error taxonomy class 1,
// "configuration errors").
type CreateSubscriptionRequest struct {
	Name          string
	URL           string
	OwnerID       string
	Secret        string
	Enabled       bool
	EventTypes    []EventType
	Scope         Scope
	RetryAttempts int
	TimeoutMillis int64
	RateLimit     int
	RateLimitPeriodMillis int64
	Headers       Headers
}

// ToSubscription validates the request and converts it to a Subscription.
func (r CreateSubscriptionRequest) ToSubscription() (Subscription, error) {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return Subscription{}, errors.Wrap(err, "failed to parse subscription URL")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Subscription{}, errors.New("subscription URL must be absolute")
	}
	if r.OwnerID == "" {
		return Subscription{}, errors.New("owner ID is required when registering a subscription")
	}
	if len(r.EventTypes) == 0 {
		return Subscription{}, errors.New("at least one event type is required when registering a subscription")
	}
	if r.RetryAttempts < 0 {
		return Subscription{}, errors.New("retry attempts must be >= 0")
	}
	if r.RateLimit < 0 {
		return Subscription{}, errors.New("rate limit must be >= 0")
	}
	if err := r.Headers.Validate(); err != nil {
		return Subscription{}, errors.Wrap(err, "invalid headers")
	}

	retryAttempts := r.RetryAttempts
	timeout := r.TimeoutMillis
	if timeout == 0 {
		timeout = DefaultTimeoutMillis
	}

	return Subscription{
		Name:                  r.Name,
		URL:                   r.URL,
		OwnerID:               r.OwnerID,
		Secret:                r.Secret,
		Enabled:               r.Enabled,
		EventTypes:            NewEventTypeSet(r.EventTypes...),
		Scope:                 r.Scope,
		RetryAttempts:         retryAttempts,
		TimeoutMillis:         timeout,
		RateLimit:             r.RateLimit,
		RateLimitPeriod:       r.RateLimitPeriodMillis,
		Headers:               r.Headers,
		LastDeliveryStatus:    SubscriptionDeliveryNone,
		LastDeliveryAttemptAt: 0,
	}, nil
}

// NewCreateSubscriptionRequestFromReader will create a CreateSubscriptionRequest from an
// io.Reader with JSON data.
func NewCreateSubscriptionRequestFromReader(reader io.Reader) (*CreateSubscriptionRequest, error) {
	subRequest := CreateSubscriptionRequest{}
	decoder := json.NewDecoder(reader)
	err := decoder.Decode(&subRequest)
	if err != nil && err != io.EOF {
		return nil, err
	}

	return &subRequest, nil
}

// ListSubscriptionsRequest represents a request data for querying subscriptions.
type ListSubscriptionsRequest struct {
	Paging
	Owner     string
	EventType EventType
}

// ApplyToURL modifies the given url to include query string parameters for the request.
func (request *ListSubscriptionsRequest) ApplyToURL(u *url.URL) {
	q := u.Query()
	q.Add("owner", request.Owner)
	q.Add("event_type", string(request.EventType))
	request.Paging.AddToQuery(q)

	u.RawQuery = q.Encode()
}
