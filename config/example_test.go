package config_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/1120026847/web-sync/config"
)

func writeExampleConfig() string {
	f, err := os.CreateTemp("", "websync-*.yaml")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString("storage:\n  bucket: notes\n  region: eu-central-1\n"); err != nil {
		log.Fatal(err)
	}
	return f.Name()
}

func ExampleLoad() {
	path := writeExampleConfig()
	defer func() { _ = os.Remove(path) }()

	cfg, err := config.Load([]string{path}, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Bucket: %s, Prefix: %s\n", cfg.Server.Port, cfg.Storage.Bucket, cfg.Layout.UploadPrefix)
	// Output: Port: 8080, Bucket: notes, Prefix: uploads/
}

func ExampleWithContext() {
	path := writeExampleConfig()
	defer func() { _ = os.Remove(path) }()

	cfg, err := config.Load([]string{path}, nil)
	if err != nil {
		log.Fatal(err)
	}

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved region: %s\n", retrieved.Storage.Region)
	// Output: Retrieved region: eu-central-1
}
