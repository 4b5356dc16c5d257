package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"relay/internal/config"
	"relay/internal/logger"
	relaypubsub "relay/internal/pubsub"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// pushEndpoint is the push target for a relay listening on port of the host.
// 'host.docker.internal' lets the emulator reach the relay from its container.
func pushEndpoint(port string) string {
	return fmt.Sprintf("http://host.docker.internal:%s/v1/events", port)
}

const sampleSnapshotEvent = `{
  "resource": {"type": "gce_disk", "labels": {"project_id": "%s"}},
  "jsonPayload": {
    "event_subtype": "compute.disks.createSnapshot",
    "resource": {"type": "disk", "zone": "us-central1-a", "name": "disk-1"}
  },
  "timestamp": "%s"
}`

func main() {
	mode := flag.String("mode", "push", "Relay trigger mode the subscription is created for: push|pull")
	reset := flag.Bool("reset", false, "Delete every topic and subscription in the emulator first")
	publishSample := flag.Bool("publish-sample", false, "Publish a sample snapshot event once resources exist")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logger.New("development", "info")
		bootLogger.Fatal().Msgf("Failed to load config: %v", err)
	}
	logger := logger.New("development", cfg.LogLevel)
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	if *mode != "push" && *mode != "pull" {
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := relaypubsub.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	if *reset {
		resetLocalEmulator(ctx, client, logger)
	}
	createResources(ctx, client, cfg, *mode, logger)

	if *publishSample {
		payload := fmt.Sprintf(sampleSnapshotEvent, cfg.GCPProjectID, time.Now().UTC().Format(time.RFC3339))
		id, err := relaypubsub.NewPublisher(client).Publish(ctx, cfg.PubSubTopic, []byte(payload))
		if err != nil {
			logger.Fatal().Msgf("Failed to publish sample event: %v", err)
		}
		logger.Info().Str("message_id", id).Msgf("Published sample snapshot event to %s", cfg.PubSubTopic)
	}

	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

// resetLocalEmulator performs a destructive reset of all topics and subscriptions.
// This should ONLY be used against the local emulator.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	logger.Info().Msg("--- Deleting all existing resources for a clean local setup ---")

	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Msgf("Deleting subscription: %s", sub.ID())
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Msgf("Deleting topic: %s", topic.ID())
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
}

// createResources ensures the snapshot topic exists with a single subscription
// for the given mode. A second subscription would hand every event to the relay
// twice.
func createResources(ctx context.Context, client *pubsub.Client, cfg *config.Config, mode string, logger zerolog.Logger) {
	topic := createTopicIfNotExists(ctx, client, logger, cfg.PubSubTopic)
	createSubscriptionIfNotExists(ctx, client, logger, cfg.PubSubSubscription, subscriptionConfig(topic, mode, cfg.Port))
}

// subscriptionConfig returns a pull subscription for mode "pull" and a push
// subscription targeting the local relay otherwise.
func subscriptionConfig(topic *pubsub.Topic, mode, port string) pubsub.SubscriptionConfig {
	sc := pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	}
	if mode != "pull" {
		sc.PushConfig = pubsub.PushConfig{Endpoint: pushEndpoint(port)}
	}
	return sc
}

func createTopicIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) *pubsub.Topic {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if topic %s exists: %v", topicID, err)
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists.", topicID)
		return topic
	}

	logger.Info().Msgf("Creating topic: %s", topicID)
	topic, err = client.CreateTopic(ctx, topicID)
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return topic
}

func createSubscriptionIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, config pubsub.SubscriptionConfig) {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if subscription %s exists: %v", subID, err)
	}
	if exists {
		logger.Info().Msgf("Subscription %s already exists.", subID)
		return
	}

	if config.PushConfig.Endpoint != "" {
		logger.Info().Msgf("Creating push subscription %s with endpoint %s", subID, config.PushConfig.Endpoint)
	} else {
		logger.Info().Msgf("Creating pull subscription %s", subID)
	}
	if _, err := client.CreateSubscription(ctx, subID, config); err != nil {
		logger.Fatal().Msgf("Failed to create subscription '%s': %v", subID, err)
	}
}
