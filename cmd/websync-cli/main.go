package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/1120026847/web-sync/clientcli"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile     string
	gatewayName string
	endpoint    string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "websync-cli",
	Version: version,
	Short:   "Client for a web-sync gateway",
	Long: `websync-cli - terminal client for a web-sync gateway

Read and replace the shared notepad, and list, upload, download and
delete files in the inbox. File contents go straight to storage through
the presigned URLs the gateway issues.

The gateway is taken from --endpoint, WEBSYNC_ENDPOINT, or the named
gateway in ~/.websync/config.yaml, in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.websync/config.yaml, env: WEBSYNC_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&gatewayName, "gateway", "g", "", "named gateway from the config file (env: WEBSYNC_GATEWAY)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "gateway URL (default: http://localhost:8080, env: WEBSYNC_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// getConfigPath returns the gateway file path from flag, env or default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := os.Getenv(clientcli.EnvConfig); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig resolves the gateway URL: flag, then env, then the gateway file.
func buildConfig() (*clientcli.Config, error) {
	if endpoint != "" {
		return &clientcli.Config{Endpoint: endpoint}, nil
	}
	if env := os.Getenv(clientcli.EnvEndpoint); env != "" {
		return &clientcli.Config{Endpoint: env}, nil
	}

	name := gatewayName
	if name == "" {
		name = os.Getenv(clientcli.EnvGateway)
	}
	explicit := name != "" || cfgFile != ""

	gateways, err := clientcli.LoadGateways(getConfigPath())
	if err != nil {
		// Only error if the user asked for a file or a gateway explicitly
		if explicit {
			return nil, err
		}
		return &clientcli.Config{}, nil
	}

	url, err := gateways.Endpoint(name)
	if err != nil {
		if explicit {
			return nil, err
		}
		return &clientcli.Config{}, nil
	}

	return &clientcli.Config{Endpoint: url}, nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// handleError reports err through the formatter and returns an exitError so
// cobra does not print it a second time.
func handleError(w io.Writer, err error) error {
	_ = getFormatter().FormatError(w, err)
	return &exitError{code: 1}
}

// exitError is returned when we want to exit with a specific code
// but don't want cobra to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
