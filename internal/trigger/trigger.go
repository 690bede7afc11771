// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package trigger translates a batch of document-change transactions from
// the host platform into durable, per-subscription Events ready for the
// scheduler to dispatch.
package trigger

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	log "github.com/sirupsen/logrus"
)

// SubscriptionSource supplies the enabled Subscriptions a batch should be
// evaluated against.
type SubscriptionSource interface {
	GetSubscriptionsForEventType(eventType model.EventType) ([]*model.Subscription, error)
}

// ProjectResolver resolves the project id that owns a transaction's object,
// for Subscriptions with a projects scope filter. Issue, Component, and
// Milestone transactions resolve through their space id; Project
// transactions resolve directly to their own object id without calling the
// resolver at all.
type ProjectResolver func(objectClass model.ObjectClass, objectID, spaceID string) (string, error)

// Translator implements the translate(batch) -> events[] operation.
type Translator struct {
	subscriptions  SubscriptionSource
	resolveProject ProjectResolver
	workspace      string
	clock          clockwork.Clock
	logger         log.FieldLogger
}

// New constructs a Translator. resolveProject may be nil if the host never
// configures project-scoped Subscriptions. A Subscription with a projects
// filter then still matches Project transactions (a project is its own
// owning project) and chat messages (which the projects filter does not
// restrict); transactions of every other class are skipped with a logged
// warning rather than causing a panic.
func New(subscriptions SubscriptionSource, resolveProject ProjectResolver, workspace string, clock clockwork.Clock, logger log.FieldLogger) *Translator {
	return &Translator{
		subscriptions:  subscriptions,
		resolveProject: resolveProject,
		workspace:      workspace,
		clock:          clock,
		logger:         logger.WithField("component", "trigger"),
	}
}

// Translate converts batch into zero or more pending Events, one per
// (transaction, matching Subscription) pair. It never returns an error for
// a single bad transaction or Subscription: per spec, the translator must
// not abort the host's transaction, so failures are logged and that
// (transaction, Subscription) pair is simply skipped.
func (t *Translator) Translate(batch []model.Transaction) []*model.Event {
	var events []*model.Event

	for _, tx := range batch {
		if !model.ObservedClasses[tx.ObjectClass] {
			continue
		}

		eventType := model.NewEventType(tx.ObjectClass, tx.Kind)

		subs, err := t.subscriptions.GetSubscriptionsForEventType(eventType)
		if err != nil {
			t.logger.WithError(err).WithField("eventType", eventType).Error("failed to load subscriptions for event type")
			continue
		}

		for _, sub := range subs {
			event := t.translateOne(tx, eventType, sub)
			if event != nil {
				events = append(events, event)
			}
		}
	}

	return events
}

// translateOne evaluates one (transaction, Subscription) pair inside an
// error boundary: a panic from a misbehaving resolver must not take down
// the rest of the batch or the host's call into Translate.
func (t *Translator) translateOne(tx model.Transaction, eventType model.EventType, sub *model.Subscription) (event *model.Event) {
	logger := t.logger.WithFields(log.Fields{
		"subscription": sub.ID,
		"objectId":     tx.ObjectID,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprintf("%v", r)).Error("recovered from panic evaluating subscription scope")
			event = nil
		}
	}()

	if !t.inScope(tx, sub.Scope, logger) {
		return nil
	}

	now := t.clock.Now()
	envelope := model.NewEnvelope(model.NewID(), model.GetMillisAtTime(now), eventType, t.workspace, tx)

	payload, err := envelope.Marshal()
	if err != nil {
		logger.WithError(err).Error("failed to marshal event payload")
		return nil
	}

	return &model.Event{
		SubscriptionID:   sub.ID,
		Type:             eventType,
		ObjectID:         tx.ObjectID,
		ObjectClass:      tx.ObjectClass,
		Payload:          payload,
		Status:           model.EventStatusPending,
		Attempts:         0,
		NextAttemptAfter: model.GetMillisAtTime(now),
	}
}

// trackerFamily reports whether a class belongs to the project-owning
// families a projects scope filter can restrict: everything except chat
// messages, which have no owning project.
func trackerFamily(class model.ObjectClass) bool {
	return class != model.ObjectClassChatMessage
}

func (t *Translator) inScope(tx model.Transaction, scope model.Scope, logger log.FieldLogger) bool {
	if scope.IsEmpty() {
		return true
	}

	if scope.HasSpaceFilter() && tx.SpaceID != scope.Space {
		return false
	}

	if scope.HasProjectsFilter() && trackerFamily(tx.ObjectClass) {
		projectID, err := t.resolveProjectID(tx)
		if err != nil {
			logger.WithError(err).Warn("failed to resolve owning project for scoped subscription, skipping")
			return false
		}

		if !containsString(scope.Projects, projectID) {
			return false
		}
	}

	return true
}

func (t *Translator) resolveProjectID(tx model.Transaction) (string, error) {
	if tx.ObjectClass == model.ObjectClassProject {
		return tx.ObjectID, nil
	}

	if t.resolveProject == nil {
		return "", fmt.Errorf("no project resolver configured for object class %s", tx.ObjectClass)
	}

	return t.resolveProject(tx.ObjectClass, tx.ObjectID, tx.SpaceID)
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
