package service

import (
	"context"
	"fmt"
	"strings"

	"relay/internal/config"
)

// ResolveWebhookURL returns WEBHOOK_URL when set. Otherwise, if
// WEBHOOK_URL_SECRET names a secret version, the URL is read from Secret
// Manager. An empty result means no webhook is configured.
func ResolveWebhookURL(ctx context.Context, cfg *config.Config, secrets func(ctx context.Context) (SecretManagerService, error)) (string, error) {
	if cfg.WebhookURL != "" {
		return cfg.WebhookURL, nil
	}
	if cfg.WebhookURLSecret == "" {
		return "", nil
	}

	sm, err := secrets(ctx)
	if err != nil {
		return "", err
	}
	defer sm.Close()

	url, err := sm.GetSecret(ctx, cfg.WebhookURLSecret)
	if err != nil {
		return "", fmt.Errorf("resolving webhook URL from %s: %w", cfg.WebhookURLSecret, err)
	}
	return strings.TrimSpace(url), nil
}
