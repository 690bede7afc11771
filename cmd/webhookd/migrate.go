// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database to the latest supported schema version.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		dsn, _ := command.Flags().GetString("dsn")
		sqlStore, err := store.New(dsn, logger)
		if err != nil {
			return err
		}

		return sqlStore.Migrate()
	},
}
