package main

import (
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List files in the inbox",
	Long: `List files in the inbox, newest first.

Examples:
  websync-cli ls
  websync-cli ls --json | jq -r '.files[].url'`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.ListFiles(cmd.Context())
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatList(os.Stdout, result)
}
