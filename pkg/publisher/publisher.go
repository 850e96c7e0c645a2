// Package publisher wraps an idempotent Kafka producer behind an awaitable Publish
// that reports an explicit outcome instead of invoking completion callbacks.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	kafkautil "github.com/mohamedlandolsi/greenhouse-management-system/pkg/kafka"
)

// Status classifies the outcome of a publish.
type Status int

const (
	StatusSuccess Status = iota
	// StatusRetryable means the broker may accept the same record later; callers
	// compensate by routing the record to its dead-letter topic.
	StatusRetryable
	// StatusFatal means the record can never be delivered as-is.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRetryable:
		return "retryable"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Record is one message to publish.
type Record struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Result is the outcome of Publish.
type Result struct {
	Status    Status
	Partition int32
	Offset    int64
	Err       error
}

// OK reports whether the record was acknowledged by all in-sync replicas.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Publisher sends records through a sarama SyncProducer.
type Publisher struct {
	producer sarama.SyncProducer
}

// NewConfig returns the producer configuration: idempotent writes, acks from all
// in-sync replicas, one in-flight request per broker so retries keep per-key order.
func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0

	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = time.Second
	cfg.Producer.Timeout = 30 * time.Second
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Compression = sarama.CompressionGZIP
	cfg.Net.MaxOpenRequests = 1

	return cfg
}

// New connects an idempotent producer to the comma-separated broker list.
func New(brokers, clientID string) (*Publisher, error) {
	if err := kafkautil.ValidateProducerParams(brokers); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"client_id", clientID,
	)

	producer, err := sarama.NewSyncProducer(brokerList, NewConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	slog.Info("Kafka producer configured",
		"idempotent", true,
		"required_acks", "WaitForAll",
		"max_open_requests", 1,
		"retry_max", 3,
		"partitioner", "hash (record key)",
	)

	return &Publisher{producer: producer}, nil
}

// NewWithProducer wraps an existing SyncProducer.
func NewWithProducer(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish sends rec and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, rec Record) Result {
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusRetryable, Err: err}
	}
	if rec.Topic == "" {
		return Result{Status: StatusFatal, Err: errors.New("topic cannot be empty")}
	}

	msg := &sarama.ProducerMessage{
		Topic:     rec.Topic,
		Key:       sarama.StringEncoder(rec.Key),
		Value:     sarama.ByteEncoder(rec.Value),
		Timestamp: time.Now(),
	}
	for k, v := range rec.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return Result{Status: Classify(err), Err: err}
	}
	return Result{Status: StatusSuccess, Partition: partition, Offset: offset}
}

// PublishTimeout bounds a publish that runs on a detached context.
const PublishTimeout = 10 * time.Second

// Detach returns a context that keeps ctx's values but not its cancellation, bounded
// by timeout. Events for an already committed write are published on it so a client
// disconnect or shutdown does not drop them.
func Detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// RecordPublisher is implemented by Publisher and by test fakes.
type RecordPublisher interface {
	Publish(ctx context.Context, rec Record) Result
	Close() error
}

var _ RecordPublisher = (*Publisher)(nil)

// HeaderOriginalError carries the failure that sent a record to a dead-letter topic.
const HeaderOriginalError = "x-original-error"

// DeadLetter returns a copy of rec addressed to its dead-letter topic, with the
// same key and payload, the cause in HeaderOriginalError and any extra headers.
func DeadLetter(rec Record, cause error, extra map[string]string) Record {
	headers := make(map[string]string, len(rec.Headers)+len(extra)+1)
	for k, v := range rec.Headers {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}
	if cause != nil {
		headers[HeaderOriginalError] = cause.Error()
	}
	return Record{
		Topic:   kafkautil.DLQTopic(rec.Topic),
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: headers,
	}
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	slog.Info("Closing Kafka producer")
	if err := p.producer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	slog.Info("Kafka producer closed successfully")
	return nil
}

// Classify maps a producer error to a Status.
func Classify(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var cfgErr sarama.ConfigurationError
	var encErr sarama.PacketEncodingError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &encErr):
		return StatusFatal
	case errors.Is(err, sarama.ErrMessageSizeTooLarge),
		errors.Is(err, sarama.ErrInvalidMessage),
		errors.Is(err, sarama.ErrInvalidMessageSize),
		errors.Is(err, sarama.ErrInvalidTopic),
		errors.Is(err, sarama.ErrTopicAuthorizationFailed),
		errors.Is(err, sarama.ErrClosedClient),
		errors.Is(err, sarama.ErrShuttingDown):
		return StatusFatal
	default:
		return StatusRetryable
	}
}
