package clientcli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the default server endpoint URL.
const DefaultEndpoint = "http://localhost:8080"

// Environment variables read by the CLI.
const (
	EnvEndpoint = "WEBSYNC_ENDPOINT"
	EnvGateway  = "WEBSYNC_GATEWAY"
	EnvConfig   = "WEBSYNC_CONFIG"
)

// Gateways is the CLI's gateway file. It names the gateways a user talks to:
//
//	default: home
//	gateways:
//	  home: http://nas.local:8080
//	  work: https://sync.example.com
type Gateways struct {
	Default string            `yaml:"default,omitempty"`
	URLs    map[string]string `yaml:"gateways"`
}

// Endpoint returns the URL registered under name. An empty name selects the
// default gateway, or the only one when a single gateway is registered.
func (g *Gateways) Endpoint(name string) (string, error) {
	if len(g.URLs) == 0 {
		return "", ErrNoGateways
	}

	if name == "" {
		name = g.Default
		if name == "" && len(g.URLs) == 1 {
			for only := range g.URLs {
				name = only
			}
		}
		if name == "" {
			return "", fmt.Errorf("%w: no default set", ErrGatewayNotFound)
		}
	}

	u, ok := g.URLs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrGatewayNotFound, name)
	}
	return u, nil
}

// Set registers endpoint under name, replacing any previous URL. The first
// gateway registered becomes the default, as does any set with makeDefault.
func (g *Gateways) Set(name, endpoint string, makeDefault bool) {
	if g.URLs == nil {
		g.URLs = map[string]string{}
	}
	g.URLs[name] = endpoint
	if makeDefault || len(g.URLs) == 1 {
		g.Default = name
	}
}

// Remove deletes name and clears the default when it pointed there.
func (g *Gateways) Remove(name string) error {
	if _, ok := g.URLs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrGatewayNotFound, name)
	}
	delete(g.URLs, name)
	if g.Default == name {
		g.Default = ""
	}
	return nil
}

// Names returns the registered gateway names in sorted order.
func (g *Gateways) Names() []string {
	names := make([]string, 0, len(g.URLs))
	for name := range g.URLs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Save writes the gateway file to path, creating its directory if needed.
func (g *Gateways) Save(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadGateways reads the gateway file at path.
func LoadGateways(path string) (*Gateways, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var g Gateways
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &g, nil
}

// DefaultConfigPath returns the default gateway file path (~/.websync/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".websync", "config.yaml")
}

// Config holds resolved client configuration for a single gateway.
type Config struct {
	Endpoint string
}

// WithDefaults returns a copy of the config with default values applied.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}
