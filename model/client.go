// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Client is the programmatic interface to the webhook delivery server's
// operational HTTP surface.
type Client struct {
	address    string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient creates a client to the delivery server at the given address.
func NewClient(address string) *Client {
	return &Client{
		address:    address,
		headers:    make(map[string]string),
		httpClient: &http.Client{},
	}
}

// NewClientWithHeaders creates a client to the delivery server at the given
// address and uses the provided headers.
func NewClientWithHeaders(address string, headers map[string]string) *Client {
	return &Client{
		address:    address,
		headers:    headers,
		httpClient: &http.Client{},
	}
}

// closeBody ensures the Body of an http.Response is properly closed.
func closeBody(r *http.Response) {
	if r.Body != nil {
		_, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}
}

func (c *Client) buildURL(urlPath string, args ...interface{}) string {
	return fmt.Sprintf("%s%s", c.address, fmt.Sprintf(urlPath, args...))
}

func (c *Client) doGet(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

func (c *Client) doPost(u string, request interface{}) (*http.Response, error) {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(requestBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) doPut(u string, request interface{}) (*http.Response, error) {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequest(http.MethodPut, u, bytes.NewReader(requestBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) doDelete(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodDelete, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

// CreateSubscription requests the creation of a subscription from the
// configured delivery server.
func (c *Client) CreateSubscription(request *CreateSubscriptionRequest) (*Subscription, error) {
	resp, err := c.doPost(c.buildURL("/api/subscriptions"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted:
		return NewSubscriptionFromReader(resp.Body)

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetSubscription fetches a single subscription from the configured
// delivery server.
func (c *Client) GetSubscription(subscriptionID string) (*Subscription, error) {
	resp, err := c.doGet(c.buildURL("/api/subscription/%s", subscriptionID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewSubscriptionFromReader(resp.Body)

	case http.StatusNotFound:
		return nil, nil

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// ListSubscriptions fetches the list of subscriptions from the configured
// delivery server.
func (c *Client) ListSubscriptions(request *ListSubscriptionsRequest) ([]*Subscription, error) {
	u, err := url.Parse(c.buildURL("/api/subscriptions"))
	if err != nil {
		return nil, err
	}

	request.ApplyToURL(u)

	resp, err := c.doGet(u.String())
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewSubscriptionsFromReader(resp.Body)

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// UpdateSubscription overwrites the mutable fields of an existing
// subscription.
func (c *Client) UpdateSubscription(subscriptionID string, request *CreateSubscriptionRequest) (*Subscription, error) {
	resp, err := c.doPut(c.buildURL("/api/subscription/%s", subscriptionID), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewSubscriptionFromReader(resp.Body)

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// DeleteSubscription deletes the given subscription.
func (c *Client) DeleteSubscription(subscriptionID string) error {
	resp, err := c.doDelete(c.buildURL("/api/subscription/%s", subscriptionID))
	if err != nil {
		return err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil

	default:
		return errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetEvent fetches a single event, including its terminal lastError if
// dead-lettered, from the configured delivery server.
func (c *Client) GetEvent(eventID string) (*Event, error) {
	resp, err := c.doGet(c.buildURL("/api/event/%s", eventID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var event Event
		if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
			return nil, errors.Wrap(err, "failed to decode event")
		}
		return &event, nil

	case http.StatusNotFound:
		return nil, nil

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetEventDeliveryAttempts fetches the full delivery attempt history for an
// event, oldest first.
func (c *Client) GetEventDeliveryAttempts(eventID string) ([]*DeliveryAttempt, error) {
	resp, err := c.doGet(c.buildURL("/api/event/%s/attempts", eventID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var attempts []*DeliveryAttempt
		if err := json.NewDecoder(resp.Body).Decode(&attempts); err != nil {
			return nil, errors.Wrap(err, "failed to decode delivery attempts")
		}
		return attempts, nil

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// ListEventsRequest filters the event listing endpoint.
type ListEventsRequest struct {
	Paging
	SubscriptionID string
	Status         EventStatus
}

// ApplyToURL modifies the given url to include query string parameters for the request.
func (request *ListEventsRequest) ApplyToURL(u *url.URL) {
	q := u.Query()
	q.Add("subscription_id", request.SubscriptionID)
	q.Add("status", string(request.Status))
	request.Paging.AddToQuery(q)

	u.RawQuery = q.Encode()
}

// ListEvents fetches events from the configured delivery server, primarily
// used by operator tooling to inspect dead-lettered events.
func (c *Client) ListEvents(request *ListEventsRequest) ([]*Event, error) {
	u, err := url.Parse(c.buildURL("/api/events"))
	if err != nil {
		return nil, err
	}

	request.ApplyToURL(u)

	resp, err := c.doGet(u.String())
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var events []*Event
		if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
			return nil, errors.Wrap(err, "failed to decode events")
		}
		return events, nil

	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}
