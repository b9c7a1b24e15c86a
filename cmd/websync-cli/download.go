package main

import (
	"io"
	"os"

	"github.com/1120026847/web-sync/clientcli"
	"github.com/spf13/cobra"
)

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <name-or-key> [local-path]",
	Short: "Download a file from the inbox",
	Long: `Download a file from the inbox.

The file is named either by its full key or by its display name; a
display name shared by several files must be given as a key instead.

Examples:
  websync-cli download report.pdf
  websync-cli download uploads/1700000000000-0a1b2c3d_report.pdf ./r.pdf
  websync-cli download --stdout config.json | jq .`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
}

func runDownload(cmd *cobra.Command, args []string) error {
	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Download(cmd.Context(), clientcli.DownloadOptions{
		File:      args[0],
		LocalPath: localPath,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// Metadata goes to stderr so stdout stays the file content
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
