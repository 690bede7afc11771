// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"strings"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	subscriptionCmd.PersistentFlags().String("server", defaultLocalServerAPI, "The webhookd server whose API will be queried.")
	subscriptionCmd.PersistentFlags().Bool("dry-run", false, "When set, only print the API request without sending it.")

	subscriptionCreateCmd.Flags().String("name", "", "Name of the subscription.")
	subscriptionCreateCmd.Flags().String("url", "", "Destination URL the subscription delivers to.")
	subscriptionCreateCmd.Flags().String("owner", "", "OwnerID of the subscription.")
	subscriptionCreateCmd.Flags().String("secret", "", "HMAC secret used to sign outbound payloads. Leave empty for unsigned deliveries.")
	subscriptionCreateCmd.Flags().Bool("enabled", true, "Whether the subscription is enabled on creation.")
	subscriptionCreateCmd.Flags().StringSlice("event-type", nil, "Event type(s) this subscription accepts, e.g. Issue.created. May be repeated.")
	subscriptionCreateCmd.Flags().String("space", "", "Restrict delivery to document changes in this space.")
	subscriptionCreateCmd.Flags().StringSlice("project", nil, "Restrict delivery to document changes owned by these project(s).")
	subscriptionCreateCmd.Flags().Int("retry-attempts", model.DefaultRetryAttempts, "Number of retry attempts after the first, before dead-lettering.")
	subscriptionCreateCmd.Flags().Int64("timeout-millis", model.DefaultTimeoutMillis, "Per-attempt HTTP timeout, in milliseconds.")
	subscriptionCreateCmd.Flags().Int("rate-limit", 0, "Maximum deliveries per rate-limit-period-millis. 0 disables the limit.")
	subscriptionCreateCmd.Flags().Int64("rate-limit-period-millis", 0, "The sliding window width for rate-limit, in milliseconds.")
	subscriptionCreateCmd.Flags().StringSlice("header", nil, "Static header to attach to outbound requests, as Key=Value. May be repeated.")
	_ = subscriptionCreateCmd.MarkFlagRequired("url")
	_ = subscriptionCreateCmd.MarkFlagRequired("owner")
	_ = subscriptionCreateCmd.MarkFlagRequired("event-type")

	subscriptionListCmd.Flags().String("owner", "", "Filter by OwnerID.")
	subscriptionListCmd.Flags().String("event-type", "", "Filter by accepted event type.")
	registerPagingFlags(subscriptionListCmd)
	registerTableOutputFlags(subscriptionListCmd)

	subscriptionGetCmd.Flags().String("subscription", "", "ID of the subscription to fetch.")
	_ = subscriptionGetCmd.MarkFlagRequired("subscription")

	subscriptionUpdateCmd.Flags().AddFlagSet(subscriptionCreateCmd.Flags())
	subscriptionUpdateCmd.Flags().String("subscription", "", "ID of the subscription to update.")
	_ = subscriptionUpdateCmd.MarkFlagRequired("subscription")

	subscriptionDeleteCmd.Flags().String("subscription", "", "ID of the subscription to delete.")
	_ = subscriptionDeleteCmd.MarkFlagRequired("subscription")

	subscriptionCmd.AddCommand(subscriptionCreateCmd)
	subscriptionCmd.AddCommand(subscriptionListCmd)
	subscriptionCmd.AddCommand(subscriptionGetCmd)
	subscriptionCmd.AddCommand(subscriptionUpdateCmd)
	subscriptionCmd.AddCommand(subscriptionDeleteCmd)
}

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manipulate subscriptions managed by the webhookd server.",
}

func parseHeaderFlags(raw []string) (model.Headers, error) {
	headers := make(model.Headers, 0, len(raw))
	for _, h := range raw {
		parts := strings.SplitN(h, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("malformed header %q, expected Key=Value", h)
		}
		value := parts[1]
		headers = append(headers, model.Header{Key: parts[0], Value: &value})
	}
	return headers, nil
}

func createSubscriptionRequestFromFlags(command *cobra.Command) (*model.CreateSubscriptionRequest, error) {
	name, _ := command.Flags().GetString("name")
	url, _ := command.Flags().GetString("url")
	owner, _ := command.Flags().GetString("owner")
	secret, _ := command.Flags().GetString("secret")
	enabled, _ := command.Flags().GetBool("enabled")
	eventTypes, _ := command.Flags().GetStringSlice("event-type")
	space, _ := command.Flags().GetString("space")
	projects, _ := command.Flags().GetStringSlice("project")
	retryAttempts, _ := command.Flags().GetInt("retry-attempts")
	timeoutMillis, _ := command.Flags().GetInt64("timeout-millis")
	rateLimit, _ := command.Flags().GetInt("rate-limit")
	rateLimitPeriodMillis, _ := command.Flags().GetInt64("rate-limit-period-millis")
	rawHeaders, _ := command.Flags().GetStringSlice("header")

	headers, err := parseHeaderFlags(rawHeaders)
	if err != nil {
		return nil, err
	}

	types := make([]model.EventType, 0, len(eventTypes))
	for _, t := range eventTypes {
		types = append(types, model.EventType(t))
	}

	return &model.CreateSubscriptionRequest{
		Name:                  name,
		URL:                   url,
		OwnerID:               owner,
		Secret:                secret,
		Enabled:               enabled,
		EventTypes:            types,
		Scope:                 model.Scope{Space: space, Projects: projects},
		RetryAttempts:         retryAttempts,
		TimeoutMillis:         timeoutMillis,
		RateLimit:             rateLimit,
		RateLimitPeriodMillis: rateLimitPeriodMillis,
		Headers:               headers,
	}, nil
}

var subscriptionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Registers a new subscription.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		request, err := createSubscriptionRequestFromFlags(command)
		if err != nil {
			return err
		}

		dryRun, _ := command.Flags().GetBool("dry-run")
		if dryRun {
			return printJSON(request)
		}

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		sub, err := client.CreateSubscription(request)
		if err != nil {
			return errors.Wrap(err, "failed to create subscription")
		}

		return printJSON(sub)
	},
}

func defaultSubscriptionsTableData(subscriptions []*model.Subscription) ([]string, [][]string) {
	keys := []string{"ID", "NAME", "URL", "OWNER", "ENABLED", "LAST DELIVERY STATUS"}
	vals := make([][]string, 0, len(subscriptions))

	for _, sub := range subscriptions {
		vals = append(vals, []string{
			sub.ID,
			sub.Name,
			sub.URL,
			sub.OwnerID,
			boolToYesNo(sub.Enabled),
			string(sub.LastDeliveryStatus),
		})
	}

	return keys, vals
}

func boolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

var subscriptionListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists subscriptions.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		owner, _ := command.Flags().GetString("owner")
		eventType, _ := command.Flags().GetString("event-type")

		subscriptions, err := client.ListSubscriptions(&model.ListSubscriptionsRequest{
			Paging:    parsePagingFlags(command),
			Owner:     owner,
			EventType: model.EventType(eventType),
		})
		if err != nil {
			return errors.Wrap(err, "failed to list subscriptions")
		}

		if tableOutputEnabled(command) {
			printTable(defaultSubscriptionsTableData(subscriptions))
			return nil
		}

		return printJSON(subscriptions)
	},
}

var subscriptionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetches a single subscription.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		subID, _ := command.Flags().GetString("subscription")
		sub, err := client.GetSubscription(subID)
		if err != nil {
			return errors.Wrap(err, "failed to get subscription")
		}
		if sub == nil {
			return errors.Errorf("subscription %s not found", subID)
		}

		return printJSON(sub)
	},
}

var subscriptionUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Overwrites the mutable fields of an existing subscription.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		request, err := createSubscriptionRequestFromFlags(command)
		if err != nil {
			return err
		}

		subID, _ := command.Flags().GetString("subscription")
		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		sub, err := client.UpdateSubscription(subID, request)
		if err != nil {
			return errors.Wrap(err, "failed to update subscription")
		}

		return printJSON(sub)
	},
}

var subscriptionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes a subscription.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		subID, _ := command.Flags().GetString("subscription")
		if err := client.DeleteSubscription(subID); err != nil {
			return errors.Wrap(err, "failed to delete subscription")
		}

		return nil
	},
}
