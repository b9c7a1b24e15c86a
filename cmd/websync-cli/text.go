package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var textFile string

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Read or replace the shared notepad",
}

var textGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the notepad content",
	Args:  cobra.NoArgs,
	RunE:  runTextGet,
}

var textSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the notepad content",
	Long: `Replace the notepad content.

The new content is taken from the argument, from --file, or from stdin
when neither is given. An empty argument clears the notepad.

Examples:
  websync-cli text set "call back at 5"
  websync-cli text set --file notes.md
  pbpaste | websync-cli text set`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTextSet,
}

func init() {
	textSetCmd.Flags().StringVarP(&textFile, "file", "f", "", "read the new content from a file")

	textCmd.AddCommand(textGetCmd)
	textCmd.AddCommand(textSetCmd)
}

func runTextGet(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	text, err := client.GetText(cmd.Context())
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatText(os.Stdout, text)
}

func runTextSet(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.SetText(cmd.Context(), text); err != nil {
		return handleError(os.Stderr, err)
	}

	if !quiet && !jsonOutput {
		fmt.Printf("Saved %d byte(s).\n", len(text))
	}
	return nil
}

func readText(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case textFile != "":
		data, err := os.ReadFile(textFile) //#nosec G304 -- path is user-provided input
		if err != nil {
			return "", fmt.Errorf("read %s: %w", textFile, err)
		}
		return string(data), nil
	default:
		var b strings.Builder
		if _, err := io.Copy(&b, stdin); err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return b.String(), nil
	}
}
