package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/1120026847/web-sync/clientcli"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	configureDefault bool
	configureRemove  bool
)

var configureCmd = &cobra.Command{
	Use:   "configure [name [url]]",
	Short: "Manage named gateways",
	Long: `Manage the named gateways in ~/.websync/config.yaml.

Without arguments, lists the gateways; the default is marked with *.
With a name, adds or updates that gateway, prompting for its URL when none
is given. The gateway's /healthz endpoint is probed before saving.

Select a gateway with --gateway or WEBSYNC_GATEWAY.`,
	Example: `  websync-cli configure home http://nas.local:8080 --default
  websync-cli configure work
  websync-cli configure work --remove`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureDefault, "default", false, "make this the default gateway")
	configureCmd.Flags().BoolVar(&configureRemove, "remove", false, "remove the named gateway")
}

func runConfigure(_ *cobra.Command, args []string) error {
	configPath := getConfigPath()

	gateways, err := clientcli.LoadGateways(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		gateways = &clientcli.Gateways{}
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	}

	if len(args) == 0 {
		if configureRemove {
			return errors.New("--remove needs a gateway name")
		}
		printGateways(gateways)
		return nil
	}

	name := args[0]
	if configureRemove {
		if err := gateways.Remove(name); err != nil {
			return err
		}
		if err := gateways.Save(configPath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Gateway '%s' removed.\n", name)
		return nil
	}

	var endpointURL string
	if len(args) == 2 {
		endpointURL = args[1]
		if err := validateGatewayURL(endpointURL); err != nil {
			return err
		}
	} else {
		prompt := promptui.Prompt{
			Label:    "Gateway URL",
			Default:  clientcli.DefaultEndpoint,
			Validate: validateGatewayURL,
		}
		if endpointURL, err = prompt.Run(); err != nil {
			return handlePromptError(err)
		}
	}
	endpointURL = strings.TrimSuffix(endpointURL, "/")

	if connErr := testGatewayConnection(endpointURL); connErr != nil {
		fmt.Printf("Warning: could not reach gateway: %v\n", connErr)
	}

	gateways.Set(name, endpointURL, configureDefault)
	if err := gateways.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Gateway '%s' saved.\n", name)
	if gateways.Default == name {
		fmt.Println("It is the default gateway.")
	}
	return nil
}

func printGateways(gateways *clientcli.Gateways) {
	names := gateways.Names()
	if len(names) == 0 {
		fmt.Println("No gateways configured.")
		fmt.Println("Run 'websync-cli configure <name> <url>' to add one.")
		return
	}

	for _, name := range names {
		marker := " "
		if name == gateways.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\n", marker, name, gateways.URLs[name])
	}
}

func validateGatewayURL(input string) error {
	if input == "" {
		return errors.New("gateway URL is required")
	}
	parsedURL, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

// testGatewayConnection probes the gateway's liveness endpoint.
func testGatewayConnection(endpointURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// handlePromptError treats an interrupted or aborted prompt as a cancel.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
