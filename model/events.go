// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

// ObjectClass is the closed set of document classes the translator observes.
// Adding a class is a code change, not a configuration change.
type ObjectClass string

const (
	ObjectClassIssue       ObjectClass = "Issue"
	ObjectClassProject     ObjectClass = "Project"
	ObjectClassComponent   ObjectClass = "Component"
	ObjectClassMilestone   ObjectClass = "Milestone"
	ObjectClassChatMessage ObjectClass = "ChatMessage"
)

// ObservedClasses is the closed set of classes the translator will ever
// classify; transactions against any other class are dropped without
// producing an Event.
var ObservedClasses = map[ObjectClass]bool{
	ObjectClassIssue:       true,
	ObjectClassProject:     true,
	ObjectClassComponent:   true,
	ObjectClassMilestone:   true,
	ObjectClassChatMessage: true,
}

// TransactionKind is the mutation kind carried by a document-change
// transaction from the host platform.
type TransactionKind string

const (
	TransactionCreate TransactionKind = "create"
	TransactionUpdate TransactionKind = "update"
	TransactionDelete TransactionKind = "delete"
)

// Action returns the canonical envelope action name for a transaction kind.
func (k TransactionKind) Action() string {
	switch k {
	case TransactionCreate:
		return "created"
	case TransactionUpdate:
		return "updated"
	case TransactionDelete:
		return "deleted"
	default:
		return ""
	}
}

// EventType is a tagged pair of (ObjectClass, TransactionKind), e.g.
// "Issue.created". The set is closed and fixed at compile time by the
// ObservedClasses/TransactionKind enumerations above.
type EventType string

// NewEventType builds the closed-set event type for a class and kind.
func NewEventType(class ObjectClass, kind TransactionKind) EventType {
	return EventType(string(class) + "." + kind.Action())
}

// EventStatus is a node in the Event status DAG:
//
//	pending -> in-flight -> (delivered | failed-retryable | dead-lettered)
//
// failed-retryable -> in-flight is the only back-edge.
type EventStatus string

const (
	EventStatusPending         EventStatus = "pending"
	EventStatusInFlight        EventStatus = "in-flight"
	EventStatusDelivered       EventStatus = "delivered"
	EventStatusFailedRetryable EventStatus = "failed-retryable"
	EventStatusDeadLettered    EventStatus = "dead-lettered"
)

// MaxResponseBodyCapture is the maximum number of bytes of a response body
// retained on a DeliveryAttempt.
const MaxResponseBodyCapture = 8 * 1024

// Event is one pending or completed delivery directed at exactly one
// Subscription. Payload is the pre-rendered canonical envelope (see
// Envelope) stored as raw bytes so a retry never re-derives it from mutable
// document state and so HMAC signatures stay stable across attempts.
type Event struct {
	ID             string
	SubscriptionID string
	Type           EventType
	ObjectID       string
	ObjectClass    ObjectClass
	Payload        []byte

	Status           EventStatus
	Attempts         int
	LastAttemptedOn  int64
	NextAttemptAfter int64
	LastError        string

	CreateAt int64
}

// DeliveryAttempt is an append-only audit record of a single HTTP try
// against one Event. AttemptNumber starts at 1 and is strictly increasing
// per Event.
type DeliveryAttempt struct {
	ID            string
	EventID       string
	AttemptNumber int
	Timestamp     int64
	HTTPStatus    int
	ResponseTime  int64
	Success       bool
	Error         string
	ResponseBody  string
}

// DeliveryStats are rolling, best-effort per-subscription counters. Their
// loss is not a correctness issue; Events and DeliveryAttempts are durable.
type DeliveryStats struct {
	SubscriptionID         string
	Period                 string
	TotalEvents            int64
	DeliveredEvents        int64
	FailedEvents           int64
	TotalResponseTime      int64
	LastDeliveryAttempt    int64
	LastSuccessfulDelivery int64
}

// AverageResponseTime returns the arithmetic mean response time in
// milliseconds across all attempts recorded in this period.
func (s DeliveryStats) AverageResponseTime() float64 {
	if s.TotalEvents == 0 {
		return 0
	}
	return float64(s.TotalResponseTime) / float64(s.TotalEvents)
}

// SuccessRate returns DeliveredEvents/TotalEvents, or zero before any
// attempt has been recorded.
func (s DeliveryStats) SuccessRate() float64 {
	if s.TotalEvents == 0 {
		return 0
	}
	return float64(s.DeliveredEvents) / float64(s.TotalEvents)
}

// StatsDelta is the update applied atomically to a subscription's rolling
// DeliveryStats after each DeliveryAttempt.
type StatsDelta struct {
	Delivered    bool
	Failed       bool
	ResponseTime int64
	AttemptAt    int64
	SuccessfulAt int64
}

// EventsFilter is a filter for event listing queries, primarily used by
// operator tooling to inspect dead-lettered events.
type EventsFilter struct {
	Paging
	SubscriptionID string
	Status         EventStatus
}
