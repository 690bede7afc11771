// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	completionCmd.AddCommand(bashCompletionCmd)
	completionCmd.AddCommand(zshCompletionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generates autocompletion scripts for bash and zsh",
}

var bashCompletionCmd = &cobra.Command{
	Use:   "bash",
	Short: "Generates the bash autocompletion script",
	Long: `To load completion, run

. <(webhookd completion bash)

To configure your bash shell to load completions for each session, add the above line to your ~/.bashrc
`,
	Run: func(command *cobra.Command, args []string) {
		_ = rootCmd.GenBashCompletion(os.Stdout)
	},
}

var zshCompletionCmd = &cobra.Command{
	Use:   "zsh",
	Short: "Generates the zsh autocompletion script",
	Long: `To load completion, run

. <(webhookd completion zsh)

To configure your zsh shell to load completions for each session, add the above line to your ~/.zshrc
`,
	Run: func(command *cobra.Command, args []string) {
		_ = rootCmd.GenZshCompletion(os.Stdout)
	},
}
