// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package main is the entry point to the webhookd delivery server and CLI.
package main

import (
	"os"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webhookd",
	Short: "webhookd translates document-change transactions into webhook events and delivers them reliably.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.PopulateEnv(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return newCmdServer().RunE(cmd, args)
	},
	SilenceErrors: true,
}

func init() {
	config.AddFlags(rootCmd)

	rootCmd.AddCommand(newCmdServer())
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
