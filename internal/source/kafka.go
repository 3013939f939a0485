package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// DefaultKafkaIdleTimeout ends a batch when no message arrives for this
// long.
const DefaultKafkaIdleTimeout = 5 * time.Second

// MessageReader is the part of *kafka.Reader used by KafkaProvider.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures a KafkaProvider.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// MaxMessages ends a batch after this many documents. Zero means no
	// limit.
	MaxMessages int
	// IdleTimeout ends a batch when no message arrives in time.
	IdleTimeout time.Duration
	// KeyField, when set, stores the message key in this field.
	KeyField string
}

// KafkaProvider reads JSON object messages from a topic as a consumer
// group member. A message is committed once the indexer asks for the next
// one, so every committed message has been indexed; the last message of a
// failed batch is redelivered.
type KafkaProvider struct {
	cfg       KafkaConfig
	newReader func() MessageReader
	logger    *slog.Logger
}

// NewKafkaProvider returns a provider reading cfg.Topic from cfg.Brokers.
func NewKafkaProvider(cfg KafkaConfig) *KafkaProvider {
	return newKafkaProvider(cfg, func() MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			// Offsets are committed explicitly.
			CommitInterval: 0,
			StartOffset:    kafka.FirstOffset,
		})
	})
}

func newKafkaProvider(cfg KafkaConfig, newReader func() MessageReader) *KafkaProvider {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultKafkaIdleTimeout
	}
	return &KafkaProvider{
		cfg:       cfg,
		newReader: newReader,
		logger:    slog.Default().With("component", "kafka-source", "topic", cfg.Topic),
	}
}

// Iterate joins the consumer group.
func (p *KafkaProvider) Iterate(ctx context.Context) (document.Iterator, error) {
	if len(p.cfg.Brokers) == 0 || p.cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return &kafkaIterator{
		ctx:    ctx,
		reader: p.newReader(),
		cfg:    p.cfg,
		logger: p.logger,
	}, nil
}

// Close leaves the consumer group.
func (p *KafkaProvider) Close(it document.Iterator) error {
	ki, ok := it.(*kafkaIterator)
	if !ok {
		return nil
	}
	return ki.close()
}

type kafkaIterator struct {
	ctx     context.Context
	reader  MessageReader
	cfg     KafkaConfig
	logger  *slog.Logger
	pending *kafka.Message
	read    int
	doc     document.Document
	err     error

	closeOnce sync.Once
	closeErr  error
}

func (it *kafkaIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.commitPending() {
		return false
	}
	if it.cfg.MaxMessages > 0 && it.read >= it.cfg.MaxMessages {
		return false
	}

	fetchCtx, cancel := context.WithTimeout(it.ctx, it.cfg.IdleTimeout)
	defer cancel()
	msg, err := it.reader.FetchMessage(fetchCtx)
	if err != nil {
		if it.ctx.Err() != nil {
			it.err = it.ctx.Err()
		} else if !stderrors.Is(err, context.DeadlineExceeded) {
			it.err = fmt.Errorf("fetch message: %w", err)
		}
		return false
	}

	doc, err := DecodeJSON(msg.Value)
	if err != nil {
		it.err = fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		return false
	}
	if it.cfg.KeyField != "" && len(msg.Key) > 0 {
		doc.Set(it.cfg.KeyField, string(msg.Key))
	}
	it.logger.Debug("kafka_message_received",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset))

	it.pending = &msg
	it.read++
	it.doc = doc
	return true
}

// commitPending commits the message handed out by the previous Next.
func (it *kafkaIterator) commitPending() bool {
	if it.pending == nil {
		return true
	}
	if err := it.reader.CommitMessages(it.ctx, *it.pending); err != nil {
		it.err = fmt.Errorf("commit offset %d: %w", it.pending.Offset, err)
		return false
	}
	it.pending = nil
	return true
}

func (it *kafkaIterator) Document() document.Document { return it.doc }
func (it *kafkaIterator) Err() error                  { return it.err }

func (it *kafkaIterator) close() error {
	it.closeOnce.Do(func() { it.closeErr = it.reader.Close() })
	return it.closeErr
}
