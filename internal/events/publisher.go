// Package events publishes game lifecycle events for downstream consumers
// (analytics, moderation). Publishing is fire-and-forget: the game never
// blocks on the broker.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/fableweave/fableweave/internal/config"
	"github.com/fableweave/fableweave/internal/game"
)

// Publisher emits game lifecycle events.
type Publisher interface {
	StateChanged(code string, from, to game.GameState, round int)
	WinnersComputed(code string, phase game.GameState, winnerIDs []string)
	Close() error
}

// Event is the wire shape of a published event.
type Event struct {
	Type      string         `json:"type"`
	GameCode  string         `json:"gameCode"`
	From      game.GameState `json:"from,omitempty"`
	To        game.GameState `json:"to,omitempty"`
	Phase     game.GameState `json:"phase,omitempty"`
	Round     int            `json:"round,omitempty"`
	WinnerIDs []string       `json:"winnerIds,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// KafkaPublisher publishes events through a sarama async producer.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      zerolog.Logger
	wg       sync.WaitGroup
}

func NewKafkaPublisher(cfg *config.KafkaConfig, log zerolog.Logger) (*KafkaPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{producer: producer, topic: cfg.Topic, log: log}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.log.Error().Err(err.Err).Msg("event publish failed")
		}
	}()
	return p, nil
}

func (p *KafkaPublisher) StateChanged(code string, from, to game.GameState, round int) {
	p.emit(Event{Type: "state_changed", GameCode: code, From: from, To: to, Round: round})
}

func (p *KafkaPublisher) WinnersComputed(code string, phase game.GameState, winnerIDs []string) {
	p.emit(Event{Type: "winners_computed", GameCode: code, Phase: phase, WinnerIDs: winnerIDs})
}

func (p *KafkaPublisher) emit(e Event) {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Error().Err(err).Msg("encoding event")
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.GameCode),
		Value: sarama.ByteEncoder(data),
	}
}

func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	p.wg.Wait()
	return err
}

// NoopPublisher discards all events; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) StateChanged(string, game.GameState, game.GameState, int) {}
func (NoopPublisher) WinnersComputed(string, game.GameState, []string)         {}
func (NoopPublisher) Close() error                                             { return nil }
