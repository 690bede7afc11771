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

const (
	eventTable           = "Event"
	deliveryAttemptTable = "DeliveryAttempt"
	deliveryStatsTable   = "DeliveryStats"
)

var eventColumns = []string{
	"ID",
	"SubscriptionID",
	"Type",
	"ObjectID",
	"ObjectClass",
	"Payload",
	"Status",
	"Attempts",
	"LastAttemptedOn",
	"NextAttemptAfter",
	"LastError",
	"CreateAt",
}

var eventSelect = sq.Select(eventColumns...).From(eventTable)

// ErrEventConflict indicates that an event could not be updated because its
// status or attempt count no longer matched the caller's expectations.
var ErrEventConflict = errors.New("event was concurrently modified")

// CreateEvent inserts a new event with whatever status the caller set,
// assigning its ID and CreateAt.
func (sqlStore *SQLStore) CreateEvent(event *model.Event) error {
	event.ID = model.NewID()
	event.CreateAt = model.GetMillis()

	_, err := sqlStore.execBuilder(sqlStore.db, sq.Insert(eventTable).
		SetMap(map[string]interface{}{
			"ID":               event.ID,
			"SubscriptionID":   event.SubscriptionID,
			"Type":             event.Type,
			"ObjectID":         event.ObjectID,
			"ObjectClass":      event.ObjectClass,
			"Payload":          event.Payload,
			"Status":           event.Status,
			"Attempts":         event.Attempts,
			"LastAttemptedOn":  event.LastAttemptedOn,
			"NextAttemptAfter": event.NextAttemptAfter,
			"LastError":        event.LastError,
			"CreateAt":         event.CreateAt,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create event")
	}

	return nil
}

// GetEvent fetches a single event by ID.
func (sqlStore *SQLStore) GetEvent(id string) (*model.Event, error) {
	var event model.Event
	err := sqlStore.getBuilder(sqlStore.db, &event, eventSelect.Where("ID = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get event")
	}

	return &event, nil
}

// GetEvents fetches events matching the given filter.
func (sqlStore *SQLStore) GetEvents(filter *model.EventsFilter) ([]*model.Event, error) {
	query := eventSelect.OrderBy("CreateAt DESC")
	// The Event table has no DeleteAt column, so only the paging limit and
	// offset apply.
	paging := filter.Paging
	paging.IncludeDeleted = true
	query = applyPagingFilter(query, paging)

	if filter.SubscriptionID != "" {
		query = query.Where("SubscriptionID = ?", filter.SubscriptionID)
	}
	if filter.Status != "" {
		query = query.Where("Status = ?", filter.Status)
	}

	events := []*model.Event{}
	err := sqlStore.selectBuilder(sqlStore.db, &events, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}

	return events, nil
}

// FindDueEvents returns up to limit pending or failed-retryable events whose
// NextAttemptAfter is at or before now, earliest NextAttemptAfter first.
func (sqlStore *SQLStore) FindDueEvents(now int64, limit int) ([]*model.Event, error) {
	query := eventSelect.
		Where(sq.Eq{"Status": []model.EventStatus{model.EventStatusPending, model.EventStatusFailedRetryable}}).
		Where("NextAttemptAfter <= ?", now).
		OrderBy("NextAttemptAfter ASC").
		Limit(uint64(limit))

	events := []*model.Event{}
	err := sqlStore.selectBuilder(sqlStore.db, &events, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find due events")
	}

	return events, nil
}

// EventUpdate captures the fields applied when an event transitions state.
type EventUpdate struct {
	Status           model.EventStatus
	Attempts         int
	LastAttemptedOn  int64
	NextAttemptAfter int64
	LastError        string
}

// UpdateEvent performs an optimistic-concurrency update of an event: the
// update is only applied if the row's current Status and Attempts still
// match expectStatus and expectAttempts. Returns ErrEventConflict if another
// writer raced ahead of the caller.
func (sqlStore *SQLStore) UpdateEvent(id string, expectStatus model.EventStatus, expectAttempts int, update EventUpdate) error {
	return sqlStore.updateEvent(sqlStore.db, id, expectStatus, expectAttempts, update)
}

func (sqlStore *SQLStore) updateEvent(e execer, id string, expectStatus model.EventStatus, expectAttempts int, update EventUpdate) error {
	result, err := sqlStore.execBuilder(e, sq.Update(eventTable).
		SetMap(map[string]interface{}{
			"Status":           update.Status,
			"Attempts":         update.Attempts,
			"LastAttemptedOn":  update.LastAttemptedOn,
			"NextAttemptAfter": update.NextAttemptAfter,
			"LastError":        update.LastError,
		}).
		Where("ID = ?", id).
		Where("Status = ?", expectStatus).
		Where("Attempts = ?", expectAttempts),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update event")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to determine rows affected updating event")
	}
	if rowsAffected == 0 {
		return ErrEventConflict
	}

	return nil
}

// CreateDeliveryAttempt records the outcome of a single delivery attempt.
func (sqlStore *SQLStore) CreateDeliveryAttempt(attempt *model.DeliveryAttempt) error {
	return sqlStore.createDeliveryAttempt(sqlStore.db, attempt)
}

func (sqlStore *SQLStore) createDeliveryAttempt(e execer, attempt *model.DeliveryAttempt) error {
	attempt.ID = model.NewID()

	body := attempt.ResponseBody
	if len(body) > model.MaxResponseBodyCapture {
		body = body[:model.MaxResponseBodyCapture]
	}

	_, err := sqlStore.execBuilder(e, sq.Insert(deliveryAttemptTable).
		SetMap(map[string]interface{}{
			"ID":                 attempt.ID,
			"EventID":            attempt.EventID,
			"AttemptNumber":      attempt.AttemptNumber,
			"Timestamp":          attempt.Timestamp,
			"HTTPStatus":         attempt.HTTPStatus,
			"ResponseTimeMillis": attempt.ResponseTime,
			"Success":            attempt.Success,
			"Error":              attempt.Error,
			"ResponseBody":       body,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create delivery attempt")
	}

	return nil
}

// RecordDeliveryOutcome atomically records a DeliveryAttempt and applies the
// resulting state transition to its owning Event in a single transaction.
// Without this, a crash between the two writes could leave an attempt
// recorded against an Event whose status and attempt count were never
// advanced, or an Event advanced past an attempt that was never recorded —
// either breaks the "DeliveryAttempts ordered by attemptNumber" invariant.
// Returns ErrEventConflict, without recording the attempt, if another writer
// raced ahead of expectStatus/expectAttempts.
func (sqlStore *SQLStore) RecordDeliveryOutcome(attempt *model.DeliveryAttempt, eventID string, expectStatus model.EventStatus, expectAttempts int, update EventUpdate) error {
	tx, err := sqlStore.beginTransaction(sqlStore.db)
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessCommitted()

	if err := sqlStore.updateEvent(tx, eventID, expectStatus, expectAttempts, update); err != nil {
		return err
	}
	if err := sqlStore.createDeliveryAttempt(tx, attempt); err != nil {
		return err
	}

	return tx.Commit()
}

// GetDeliveryAttempts fetches the delivery attempts recorded for an event, oldest first.
func (sqlStore *SQLStore) GetDeliveryAttempts(eventID string) ([]*model.DeliveryAttempt, error) {
	var rows []struct {
		ID                 string
		EventID            string
		AttemptNumber      int
		Timestamp          int64
		HTTPStatus         int
		ResponseTimeMillis int64
		Success            bool
		Error              string
		ResponseBody       string
	}

	err := sqlStore.selectBuilder(sqlStore.db, &rows, sq.
		Select("ID", "EventID", "AttemptNumber", "Timestamp", "HTTPStatus", "ResponseTimeMillis", "Success", "Error", "ResponseBody").
		From(deliveryAttemptTable).
		Where("EventID = ?", eventID).
		OrderBy("AttemptNumber ASC"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery attempts")
	}

	attempts := make([]*model.DeliveryAttempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, &model.DeliveryAttempt{
			ID:            r.ID,
			EventID:       r.EventID,
			AttemptNumber: r.AttemptNumber,
			Timestamp:     r.Timestamp,
			HTTPStatus:    r.HTTPStatus,
			ResponseTime:  r.ResponseTimeMillis,
			Success:       r.Success,
			Error:         r.Error,
			ResponseBody:  r.ResponseBody,
		})
	}

	return attempts, nil
}

// UpsertDeliveryStats merges a StatsDelta into the stats bucket for a
// subscription's current period, creating the bucket if necessary.
func (sqlStore *SQLStore) UpsertDeliveryStats(subscriptionID string, period string, delta model.StatsDelta) error {
	var deliveredInc, failedInc int64
	if delta.Delivered {
		deliveredInc = 1
	}
	if delta.Failed {
		failedInc = 1
	}

	result, err := sqlStore.execBuilder(sqlStore.db, sq.Update(deliveryStatsTable).
		Set("TotalEvents", sq.Expr("TotalEvents + 1")).
		Set("DeliveredEvents", sq.Expr("DeliveredEvents + ?", deliveredInc)).
		Set("FailedEvents", sq.Expr("FailedEvents + ?", failedInc)).
		Set("TotalResponseTime", sq.Expr("TotalResponseTime + ?", delta.ResponseTime)).
		Set("LastDeliveryAttempt", delta.AttemptAt).
		Set("LastSuccessfulDelivery", sq.Expr("CASE WHEN ? > LastSuccessfulDelivery THEN ? ELSE LastSuccessfulDelivery END", delta.SuccessfulAt, delta.SuccessfulAt)).
		Where("SubscriptionID = ?", subscriptionID).
		Where("PeriodStart = ?", period),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update delivery stats")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to determine rows affected updating delivery stats")
	}
	if rowsAffected > 0 {
		return nil
	}

	_, err = sqlStore.execBuilder(sqlStore.db, sq.Insert(deliveryStatsTable).
		SetMap(map[string]interface{}{
			"SubscriptionID":         subscriptionID,
			"PeriodStart":            period,
			"TotalEvents":            1,
			"DeliveredEvents":        deliveredInc,
			"FailedEvents":           failedInc,
			"TotalResponseTime":      delta.ResponseTime,
			"LastDeliveryAttempt":    delta.AttemptAt,
			"LastSuccessfulDelivery": delta.SuccessfulAt,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert delivery stats")
	}

	return nil
}

// GetDeliveryStats fetches the stats bucket for a subscription's period, if one exists.
func (sqlStore *SQLStore) GetDeliveryStats(subscriptionID string, period string) (*model.DeliveryStats, error) {
	var stats model.DeliveryStats
	err := sqlStore.getBuilder(sqlStore.db, &stats, sq.
		Select("SubscriptionID", "PeriodStart AS Period", "TotalEvents", "DeliveredEvents", "FailedEvents", "TotalResponseTime", "LastDeliveryAttempt", "LastSuccessfulDelivery").
		From(deliveryStatsTable).
		Where("SubscriptionID = ?", subscriptionID).
		Where("PeriodStart = ?", period),
	)
	if err == sql.ErrNoRows {
		return &model.DeliveryStats{SubscriptionID: subscriptionID, Period: period}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery stats")
	}

	return &stats, nil
}
