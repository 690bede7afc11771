// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"strconv"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	eventCmd.PersistentFlags().String("server", defaultLocalServerAPI, "The webhookd server whose API will be queried.")

	eventListCmd.Flags().String("subscription", "", "Filter by subscription ID.")
	eventListCmd.Flags().String("status", "", "Filter by status, e.g. dead-lettered.")
	registerPagingFlags(eventListCmd)
	registerTableOutputFlags(eventListCmd)

	eventGetCmd.Flags().String("event", "", "ID of the event to fetch.")
	_ = eventGetCmd.MarkFlagRequired("event")

	eventAttemptsCmd.Flags().String("event", "", "ID of the event whose delivery attempts to fetch.")
	_ = eventAttemptsCmd.MarkFlagRequired("event")

	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventGetCmd)
	eventCmd.AddCommand(eventAttemptsCmd)
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Inspect events, primarily to investigate dead-lettered deliveries.",
}

func defaultEventsTableData(events []*model.Event) ([]string, [][]string) {
	keys := []string{"ID", "SUBSCRIPTION", "TYPE", "STATUS", "ATTEMPTS", "LAST ERROR"}
	vals := make([][]string, 0, len(events))

	for _, e := range events {
		vals = append(vals, []string{
			e.ID,
			e.SubscriptionID,
			string(e.Type),
			string(e.Status),
			strconv.Itoa(e.Attempts),
			e.LastError,
		})
	}

	return keys, vals
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists events, e.g. webhookd event list --status dead-lettered.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		subscriptionID, _ := command.Flags().GetString("subscription")
		status, _ := command.Flags().GetString("status")

		events, err := client.ListEvents(&model.ListEventsRequest{
			Paging:         parsePagingFlags(command),
			SubscriptionID: subscriptionID,
			Status:         model.EventStatus(status),
		})
		if err != nil {
			return errors.Wrap(err, "failed to list events")
		}

		if tableOutputEnabled(command) {
			printTable(defaultEventsTableData(events))
			return nil
		}

		return printJSON(events)
	},
}

var eventGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetches a single event, including its lastError if dead-lettered.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		eventID, _ := command.Flags().GetString("event")
		event, err := client.GetEvent(eventID)
		if err != nil {
			return errors.Wrap(err, "failed to get event")
		}
		if event == nil {
			return errors.Errorf("event %s not found", eventID)
		}

		return printJSON(event)
	},
}

var eventAttemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Fetches the full delivery attempt history for an event.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		eventID, _ := command.Flags().GetString("event")
		attempts, err := client.GetEventDeliveryAttempts(eventID)
		if err != nil {
			return errors.Wrap(err, "failed to get delivery attempts")
		}

		return printJSON(attempts)
	},
}
