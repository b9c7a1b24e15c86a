package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	websync "github.com/1120026847/web-sync"
	websynchttp "github.com/1120026847/web-sync/http"
	"github.com/1120026847/web-sync/keybackend"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the gateway.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Grants  GrantsConfig  `mapstructure:"grants"`
	Notepad NotepadConfig `mapstructure:"notepad"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
	Env     string        `mapstructure:"env"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int                    `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration          `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration          `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration          `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration          `mapstructure:"shutdown_timeout" validate:"min=1s"`
	CORS            websynchttp.CORSConfig `mapstructure:"cors"`
}

// StorageConfig describes the S3-compatible bucket and how to sign for it.
// Keys are not required here; a gateway without them starts and fails each
// storage call with a configuration error.
type StorageConfig struct {
	Endpoint      string                `mapstructure:"endpoint" validate:"omitempty,http_url"`
	Region        string                `mapstructure:"region" validate:"required"`
	Bucket        string                `mapstructure:"bucket" validate:"required"`
	PathStyle     bool                  `mapstructure:"path_style"`
	PublicBaseURL string                `mapstructure:"public_base_url" validate:"omitempty,http_url"`
	Timeout       time.Duration         `mapstructure:"timeout" validate:"min=1s"`
	Keys          keybackend.KeysConfig `mapstructure:"keys"`
}

// LayoutConfig names where the notepad and uploads live in the bucket.
type LayoutConfig struct {
	NotepadKey   string `mapstructure:"notepad_key" validate:"required"`
	UploadPrefix string `mapstructure:"upload_prefix" validate:"required,endswith=/"`
}

// GrantsConfig holds presigned URL validity windows.
type GrantsConfig struct {
	UploadExpiry   time.Duration `mapstructure:"upload_expiry" validate:"min=1s,max=168h"`
	DownloadExpiry time.Duration `mapstructure:"download_expiry" validate:"min=1s,max=168h"`
}

// NotepadConfig holds notepad limits.
type NotepadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"min=1"`
}

// CatalogConfig holds listing limits.
type CatalogConfig struct {
	MaxPages int `mapstructure:"max_pages" validate:"min=1"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// IsProduction reports whether env selects production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"endpoint":        "storage.endpoint",
	"region":          "storage.region",
	"bucket":          "storage.bucket",
	"path-style":      "storage.path_style",
	"public-base-url": "storage.public_base_url",
	"keys-file":       "storage.keys.file",
	"profile":         "storage.keys.profile",
	"log-level":       "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// gets a default, even an empty one, so that environment variables can
// reach it through Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.max_age", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.path_style", false)
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.timeout", websync.DefaultRelayTimeout)
	v.SetDefault("storage.keys.access_key", "")
	v.SetDefault("storage.keys.secret_key", "")
	v.SetDefault("storage.keys.file", "")
	v.SetDefault("storage.keys.profile", "")

	v.SetDefault("layout.notepad_key", websync.DefaultNotepadKey)
	v.SetDefault("layout.upload_prefix", websync.DefaultUploadPrefix)

	v.SetDefault("grants.upload_expiry", websync.DefaultUploadExpiry)
	v.SetDefault("grants.download_expiry", websync.DefaultDownloadExpiry)

	v.SetDefault("notepad.max_bytes", websync.DefaultNotepadMaxBytes)
	v.SetDefault("catalog.max_pages", websync.DefaultMaxListPages)
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("env", "dev")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/websync")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("WEBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags plus the rules tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if err := c.Storage.Keys.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if !websync.IsValidKey(c.Layout.NotepadKey) || strings.HasSuffix(c.Layout.NotepadKey, "/") {
		return fmt.Errorf("validate config: layout.notepad_key %q is not a valid object key", c.Layout.NotepadKey)
	}
	if !websync.IsValidKey(c.Layout.UploadPrefix) {
		return fmt.Errorf("validate config: layout.upload_prefix %q is not a valid key prefix", c.Layout.UploadPrefix)
	}
	if strings.HasPrefix(c.Layout.NotepadKey, c.Layout.UploadPrefix) {
		return fmt.Errorf("validate config: layout.notepad_key must not lie under layout.upload_prefix")
	}

	return nil
}

// BucketConfig returns the bucket addressing described by the storage section.
func (c *Config) BucketConfig() websync.BucketConfig {
	return websync.BucketConfig{
		Endpoint:      c.Storage.Endpoint,
		Bucket:        c.Storage.Bucket,
		Region:        c.Storage.Region,
		PathStyle:     c.Storage.PathStyle,
		PublicBaseURL: c.Storage.PublicBaseURL,
	}
}

// GatewayConfig returns the gateway settings described by the layout,
// grants, notepad and catalog sections.
func (c *Config) GatewayConfig() websync.GatewayConfig {
	return websync.GatewayConfig{
		NotepadKey:      c.Layout.NotepadKey,
		NotepadMaxBytes: c.Notepad.MaxBytes,
		MaxListPages:    c.Catalog.MaxPages,
		Issuer: websync.IssuerConfig{
			UploadPrefix:   c.Layout.UploadPrefix,
			UploadExpiry:   c.Grants.UploadExpiry,
			DownloadExpiry: c.Grants.DownloadExpiry,
		},
	}
}
