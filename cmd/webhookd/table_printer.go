// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func registerTableOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("table", false, "Whether to display the returned output list as a table instead of JSON.")
}

func tableOutputEnabled(command *cobra.Command) bool {
	outputToTable, _ := command.Flags().GetBool("table")
	return outputToTable
}

func printTable(columnNames []string, values [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(columnNames)

	for _, v := range values {
		table.Append(v)
	}
	table.Render()
}
