package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Retention periods used by the greenhouse topics.
const (
	RetentionMeasurements = 24 * time.Hour
	RetentionEvents       = 7 * 24 * time.Hour
	RetentionDLQ          = 30 * 24 * time.Hour
)

// TopicSpec describes a topic to provision.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Retention         time.Duration
}

// EventTopicWithDLQ returns specs for an event topic and its dead-letter topic.
// Dead-letter topics use a single partition and a longer retention.
func EventTopicWithDLQ(name string, partitions, replication int) []TopicSpec {
	return []TopicSpec{
		{Name: name, Partitions: partitions, ReplicationFactor: replication, Retention: RetentionEvents},
		{Name: DLQTopic(name), Partitions: 1, ReplicationFactor: replication, Retention: RetentionDLQ},
	}
}

// TopicConfigs converts specs to kafka-go topic configs with delete cleanup and retention.ms.
func TopicConfigs(specs []TopicSpec) []kafka.TopicConfig {
	configs := make([]kafka.TopicConfig, 0, len(specs))
	for _, s := range specs {
		configs = append(configs, kafka.TopicConfig{
			Topic:             s.Name,
			NumPartitions:     s.Partitions,
			ReplicationFactor: s.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(s.Retention.Milliseconds(), 10)},
				{ConfigName: "cleanup.policy", ConfigValue: "delete"},
				{ConfigName: "min.insync.replicas", ConfigValue: "1"},
			},
		})
	}
	return configs
}

// EnsureTopics creates the given topics through the cluster controller.
// Topics that already exist are left untouched.
func EnsureTopics(ctx context.Context, brokers []string, specs []TopicSpec) error {
	if len(brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	if len(specs) == 0 {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("fetch controller metadata: %w", err)
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))

	admin, err := kafka.DialContext(dialCtx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", ctrlAddr, err)
	}
	defer admin.Close()

	if err := admin.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		slog.Warn("Failed to set controller deadline", "error", err)
	}

	for _, cfg := range TopicConfigs(specs) {
		err := admin.CreateTopics(cfg)
		switch {
		case err == nil:
			slog.Info("Created Kafka topic",
				"topic", cfg.Topic,
				"partitions", cfg.NumPartitions,
				"replication_factor", cfg.ReplicationFactor,
			)
		case isAlreadyExists(err):
			slog.Debug("Kafka topic already exists", "topic", cfg.Topic)
		default:
			return fmt.Errorf("create topic %s: %w", cfg.Topic, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
