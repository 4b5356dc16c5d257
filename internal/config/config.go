package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Webhook destination
	WebhookURL        string `envconfig:"WEBHOOK_URL"`
	WebhookURLSecret  string `envconfig:"WEBHOOK_URL_SECRET"`
	WebhookTimeoutSec int    `envconfig:"WEBHOOK_TIMEOUT_SEC" default:"0"`

	// Runtime
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Pub/Sub settings
	GCPProjectID         string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost   string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubTopic          string `envconfig:"PUBSUB_TOPIC" default:"snapshot-events"`
	PubSubSubscription   string `envconfig:"PUBSUB_SUBSCRIPTION" default:"snapshot-events-relay"`
	PubSubMaxOutstanding int    `envconfig:"PUBSUB_MAX_OUTSTANDING" default:"10"`

	// Push subscription authentication (ignored when running against the emulator)
	PubSubPushAudience            string `envconfig:"PUBSUB_PUSH_AUDIENCE"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsLocalDev reports whether the process talks to the Pub/Sub emulator.
func (c *Config) IsLocalDev() bool {
	return c.PubSubEmulatorHost != ""
}

// WebhookTimeout returns the outbound request timeout. Zero means no timeout.
func (c *Config) WebhookTimeout() time.Duration {
	if c.WebhookTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.WebhookTimeoutSec) * time.Second
}
