package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fantadebito/fantadebito/pkg/contracts/events"
)

// KafkaPublisher espelha o ciclo de vida das apostas em três tópicos, um
// writer por tópico.
type KafkaPublisher struct {
	Created    *kafka.Writer
	Terminated *kafka.Writer
	Deleted    *kafka.Writer
}

func NewKafkaPublisher(created, terminated, deleted *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Created: created, Terminated: terminated, Deleted: deleted}
}

func (p *KafkaPublisher) BetCreated(ctx context.Context, e events.BetCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return writeJSON(ctx, p.Created, e.BetID, e)
}

func (p *KafkaPublisher) BetTerminated(ctx context.Context, e events.BetTerminated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return writeJSON(ctx, p.Terminated, e.BetID, e)
}

func (p *KafkaPublisher) BetDeleted(ctx context.Context, e events.BetDeleted) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return writeJSON(ctx, p.Deleted, e.BetID, e)
}

func writeJSON(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, _ := json.Marshal(v)
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (p *KafkaPublisher) Close() {
	for _, w := range []*kafka.Writer{p.Created, p.Terminated, p.Deleted} {
		if w != nil {
			_ = w.Close()
		}
	}
}
