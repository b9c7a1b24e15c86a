package main

import (
	"os"

	"github.com/1120026847/web-sync/config"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "websync",
	Short:   "Shared notepad and file inbox gateway for S3-compatible storage",
	Long: `websync serves a shared text notepad and a file inbox kept in an
S3-compatible bucket. The gateway holds the storage keys and signs every
request; browsers upload and download through short-lived presigned URLs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("config", nil, "config file path(s), merged left to right (default: ./config.yaml, /etc/websync/config.yaml)")
	flags.String("endpoint", "", "storage endpoint URL (env: WEBSYNC_STORAGE_ENDPOINT)")
	flags.String("region", "", "storage region (default: us-east-1, env: WEBSYNC_STORAGE_REGION)")
	flags.String("bucket", "", "bucket name (env: WEBSYNC_STORAGE_BUCKET)")
	flags.Bool("path-style", false, "address the bucket as <endpoint>/<bucket> (env: WEBSYNC_STORAGE_PATH_STYLE)")
	flags.String("public-base-url", "", "public base URL for download links (env: WEBSYNC_STORAGE_PUBLIC_BASE_URL)")
	flags.String("keys-file", "", "JSON key pair file (env: WEBSYNC_STORAGE_KEYS_FILE)")
	flags.String("profile", "", "shared AWS config profile to take keys from (env: WEBSYNC_STORAGE_KEYS_PROFILE)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env: WEBSYNC_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
