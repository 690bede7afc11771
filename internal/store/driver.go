// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

const (
	driverPostgres = "postgres"
	driverSqlite   = "sqlite3" // SQLite, for single-node, development and test deployments.
)
