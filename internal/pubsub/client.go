package pubsub

import (
	"context"
	"fmt"

	"relay/internal/config"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewClient creates a Pub/Sub client for the configured project, pointed at
// the emulator when PUBSUB_EMULATOR_HOST is set.
func NewClient(ctx context.Context, cfg *config.Config) (*pubsub.Client, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is not set")
	}

	var opts []option.ClientOption
	if cfg.PubSubEmulatorHost != "" {
		opts = append(opts, option.WithEndpoint(cfg.PubSubEmulatorHost), option.WithoutAuthentication())
	}

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return client, nil
}
