package main

import (
	"os"

	"github.com/1120026847/web-sync/clientcli"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "rm <name-or-key> [name-or-key...]",
	Aliases: []string{"delete"},
	Short:   "Delete files from the inbox",
	Long: `Delete one or more files from the inbox.

Deleting a file that is already gone succeeds.

Examples:
  websync-cli rm report.pdf
  websync-cli rm old-a.txt old-b.txt
  websync-cli rm -q uploads/1700000000000-0a1b2c3d_tmp.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{Files: args})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
