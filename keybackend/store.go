// Package keybackend resolves the storage credentials the gateway signs with.
//
// Exactly one source is used: an inline key pair, a JSON key file, or a
// named profile from the shared AWS config files. Loading never fails
// outright; a source that cannot be read yields a provider whose Retrieve
// returns the load error, so the gateway still starts and reports the
// problem on every storage call.
package keybackend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Source names a credentials source.
type Source string

const (
	SourceNone    Source = "none"
	SourceInline  Source = "inline"
	SourceFile    Source = "file"
	SourceProfile Source = "profile"
)

// KeysConfig holds configuration for loading storage credentials.
type KeysConfig struct {
	AccessKey string `mapstructure:"access_key"` // Inline access key
	SecretKey string `mapstructure:"secret_key"` // Inline secret key
	File      string `mapstructure:"file"`       // Path to JSON key pair file
	Profile   string `mapstructure:"profile"`    // Shared config profile name
}

// Source reports which source cfg selects.
func (cfg KeysConfig) Source() Source {
	switch {
	case cfg.Profile != "":
		return SourceProfile
	case cfg.File != "":
		return SourceFile
	case cfg.AccessKey != "" || cfg.SecretKey != "":
		return SourceInline
	default:
		return SourceNone
	}
}

// Validate rejects configurations naming more than one source.
func (cfg KeysConfig) Validate() error {
	n := 0
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		n++
	}
	if cfg.File != "" {
		n++
	}
	if cfg.Profile != "" {
		n++
	}
	if n > 1 {
		return fmt.Errorf("storage.keys: set only one of access_key/secret_key, file or profile: %w", ErrConflictingSources)
	}
	return nil
}

// NewProvider returns a credentials provider for the source cfg selects.
// With no source configured the provider yields empty credentials.
func NewProvider(ctx context.Context, cfg KeysConfig) aws.CredentialsProvider {
	switch cfg.Source() {
	case SourceProfile:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithSharedConfigProfile(cfg.Profile))
		if err != nil {
			return unavailableProvider{err: fmt.Errorf("load profile %q: %w", cfg.Profile, err)}
		}
		if awsCfg.Credentials == nil {
			return unavailableProvider{err: fmt.Errorf("profile %q has no credentials", cfg.Profile)}
		}
		return awsCfg.Credentials
	case SourceFile:
		pair, err := LoadKeyPairFromFile(cfg.File)
		if err != nil {
			return unavailableProvider{err: err}
		}
		return credentials.NewStaticCredentialsProvider(pair.AccessKey, pair.SecretKey, pair.SessionToken)
	default:
		return credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
}

type unavailableProvider struct {
	err error
}

func (p unavailableProvider) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{}, p.err
}
