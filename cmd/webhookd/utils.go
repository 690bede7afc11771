// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"encoding/json"
	"os"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	"github.com/spf13/cobra"
)

const defaultLocalServerAPI = "http://localhost:8080"

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func registerPagingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 0, "The page of results to fetch.")
	cmd.Flags().Int("per-page", 100, "The number of results to fetch per page.")
	cmd.Flags().Bool("include-deleted", false, "Whether to include deleted records in the results.")
}

func parsePagingFlags(cmd *cobra.Command) model.Paging {
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	includeDeleted, _ := cmd.Flags().GetBool("include-deleted")

	return model.Paging{
		Page:           page,
		PerPage:        perPage,
		IncludeDeleted: includeDeleted,
	}
}
