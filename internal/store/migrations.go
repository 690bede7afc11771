// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"github.com/blang/semver"
)

type migration struct {
	fromVersion   semver.Version
	toVersion     semver.Version
	migrationFunc func(execer) error
}

// migrations defines the set of migrations necessary to advance the database to the latest
// expected version.
//
// Note that the canonical schema is currently obtained by applying all migrations to an empty
// database.
var migrations = []migration{
	{semver.MustParse("0.0.0"), semver.MustParse("0.1.0"), func(e execer) error {
		_, err := e.Exec(`
			CREATE TABLE System (
				Key VARCHAR(64) PRIMARY KEY,
				Value VARCHAR(1024) NULL
			);
		`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`
			CREATE TABLE Subscription (
				ID CHAR(26) PRIMARY KEY,
				Name VARCHAR(255) NOT NULL,
				URL VARCHAR(2048) NOT NULL,
				OwnerID CHAR(26) NOT NULL,
				Secret VARCHAR(255) NOT NULL,
				Enabled BOOLEAN NOT NULL,
				EventTypes VARCHAR(2048) NOT NULL,
				Scope VARCHAR(2048) NOT NULL,
				RetryAttempts INTEGER NOT NULL,
				TimeoutMillis BIGINT NOT NULL,
				RateLimit INTEGER NOT NULL,
				RateLimitPeriod BIGINT NOT NULL,
				Headers VARCHAR(4096) NULL,
				LastDeliveryStatus VARCHAR(32) NOT NULL,
				LastDeliveryAttemptAt BIGINT NOT NULL,
				CreateAt BIGINT NOT NULL,
				DeleteAt BIGINT NOT NULL,
				LockAcquiredBy CHAR(26) NULL,
				LockAcquiredAt BIGINT NOT NULL
			);
		`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`
			CREATE TABLE Event (
				ID CHAR(26) PRIMARY KEY,
				SubscriptionID CHAR(26) NOT NULL,
				Type VARCHAR(64) NOT NULL,
				ObjectID VARCHAR(255) NOT NULL,
				ObjectClass VARCHAR(64) NOT NULL,
				Payload BYTEA NULL,
				Status VARCHAR(32) NOT NULL,
				Attempts INTEGER NOT NULL,
				LastAttemptedOn BIGINT NOT NULL,
				NextAttemptAfter BIGINT NOT NULL,
				LastError VARCHAR(4096) NULL,
				CreateAt BIGINT NOT NULL
			);
		`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`CREATE INDEX IDX_Event_SubscriptionID ON Event (SubscriptionID);`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`CREATE INDEX IDX_Event_Status_NextAttemptAfter ON Event (Status, NextAttemptAfter);`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`
			CREATE TABLE DeliveryAttempt (
				ID CHAR(26) PRIMARY KEY,
				EventID CHAR(26) NOT NULL,
				AttemptNumber INTEGER NOT NULL,
				Timestamp BIGINT NOT NULL,
				HTTPStatus INTEGER NOT NULL,
				ResponseTimeMillis BIGINT NOT NULL,
				Success BOOLEAN NOT NULL,
				Error VARCHAR(4096) NULL,
				ResponseBody TEXT NULL
			);
		`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`CREATE INDEX IDX_DeliveryAttempt_EventID ON DeliveryAttempt (EventID);`)
		if err != nil {
			return err
		}

		_, err = e.Exec(`
			CREATE TABLE DeliveryStats (
				SubscriptionID CHAR(26) NOT NULL,
				PeriodStart VARCHAR(32) NOT NULL,
				TotalEvents BIGINT NOT NULL,
				DeliveredEvents BIGINT NOT NULL,
				FailedEvents BIGINT NOT NULL,
				TotalResponseTime BIGINT NOT NULL,
				LastDeliveryAttempt BIGINT NOT NULL,
				LastSuccessfulDelivery BIGINT NOT NULL,
				PRIMARY KEY (SubscriptionID, PeriodStart)
			);
		`)
		if err != nil {
			return err
		}

		return nil
	}},
}
