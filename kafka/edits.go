package kafka

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/processor"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// EditConsumerConfig wires the edit request topic to a processor.
type EditConsumerConfig struct {
	Brokers   []string
	Topic     string
	GroupID   string
	Processor *processor.Processor
	Logger    zerolog.Logger
}

// NewEditConsumer builds a consumer that decodes edit requests and hands
// them to the processor. Requests that fail validation are marked and
// skipped; processing failures stay unmarked for redelivery.
func NewEditConsumer(config EditConsumerConfig) (*Consumer, error) {
	logger := config.Logger.With().Str("component", "kafka").Logger()

	handler := &TypedMessageHandler[timeline.EditRequest]{
		Validate: func(msg *timeline.EditRequest) bool {
			if err := msg.Validate(); err != nil {
				logger.Warn().Err(err).Str("edit_id", msg.EditID).Msg("skipping invalid edit request")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *timeline.EditRequest) error {
			_, err := config.Processor.Process(ctx, msg)
			return err
		},
		AlwaysMark: true,
		Logger:     logger,
	}

	return NewConsumer(ConsumerConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
		GroupID: config.GroupID,
		Handler: handler,
		Logger:  config.Logger,
	})
}

// RunEditConsumer starts the consumer and blocks until SIGINT/SIGTERM,
// then shuts down after letting in-flight jobs settle.
func RunEditConsumer(config EditConsumerConfig) error {
	consumer, err := NewEditConsumer(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigterm:
		config.Logger.Info().Msg("received termination signal")
	case <-ctx.Done():
	}

	cancel()

	// Give in-flight renders a moment to notice cancellation
	time.Sleep(2 * time.Second)

	return consumer.Close()
}

// Brokers parses the Kafka broker list from the environment.
func Brokers() []string {
	brokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if brokers == "" {
		brokers = "localhost:9093"
	}
	return strings.Split(brokers, ",")
}

// Topic returns the edit request topic name.
func Topic() string {
	if topic := os.Getenv("KAFKA_TOPIC_EDIT_REQUESTS"); topic != "" {
		return topic
	}
	return "video-edit-requests"
}

// GroupID returns the consumer group id.
func GroupID() string {
	if id := os.Getenv("KAFKA_CONSUMER_GROUP_ID"); id != "" {
		return id
	}
	return "video-edit-service"
}
