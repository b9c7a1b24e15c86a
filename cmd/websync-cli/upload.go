package main

import (
	"errors"
	"os"

	"github.com/1120026847/web-sync/clientcli"
	"github.com/spf13/cobra"
)

var (
	uploadRecursive   bool
	uploadName        string
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [local-path...]",
	Short: "Upload files to the inbox",
	Long: `Upload files to the inbox.

Each file is stored under a fresh key; uploading the same name twice keeps
both copies.

Examples:
  websync-cli upload ./report.pdf
  websync-cli upload a.txt b.txt
  websync-cli upload -r ./photos/
  websync-cli upload --name today.log --content-type text/plain ./out`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload every file under a directory")
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "file name to store (single file only)")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadName != "" && (len(args) > 1 || uploadRecursive) {
		return errors.New("--name applies to a single file")
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	var results []clientcli.UploadResult
	for _, localPath := range args {
		batch, uploadErr := client.Upload(cmd.Context(), clientcli.UploadOptions{
			LocalPath:   localPath,
			Name:        uploadName,
			ContentType: uploadContentType,
			Recursive:   uploadRecursive,
		})
		if uploadErr != nil {
			batch = append(batch, clientcli.UploadResult{LocalPath: localPath, Err: uploadErr})
		}
		results = append(results, batch...)
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}

	return nil
}
