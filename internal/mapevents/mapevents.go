// Package mapevents publishes map build events to Kafka.
package mapevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

const (
	KindLayerAdded  = "layer_added"
	KindMapRendered = "map_rendered"
)

type Event struct {
	Kind     string    `json:"kind"`
	RunID    string    `json:"run_id"`
	Dataset  string    `json:"dataset,omitempty"`
	Label    string    `json:"label,omitempty"`
	Index    int       `json:"index"`
	Features int       `json:"features,omitempty"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Zoom     int       `json:"zoom"`
	Backend  string    `json:"backend,omitempty"`
	TS       time.Time `json:"ts"`
}

// Sink receives events. Implementations must not block the caller.
type Sink interface {
	Publish(ev Event)
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Close() error  { return nil }

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
}

var _ Sink = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("mapevents: create async producer: %w", err)
	}
	return NewPublisherWithProducer(prod, topic, queueSize, logger), nil
}

// NewPublisherWithProducer wraps an existing producer, which the Publisher
// then owns.
func NewPublisherWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("mapevents: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.RunID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("mapevents: producer error", "err", err)
			}
		}
	}()

	return p
}

func (p *Publisher) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
		// queue full, drop
	}
}

// Close drains queued events into the producer and closes it.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("mapevents: close producer: %w", err)
	}
	return nil
}
