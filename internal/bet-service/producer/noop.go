package producer

import (
	"context"

	"github.com/fantadebito/fantadebito/pkg/contracts/events"
)

// Noop é usado quando KAFKA_BROKERS está vazio e nos testes.
type Noop struct{}

func (Noop) BetCreated(context.Context, events.BetCreated) error       { return nil }
func (Noop) BetTerminated(context.Context, events.BetTerminated) error { return nil }
func (Noop) BetDeleted(context.Context, events.BetDeleted) error       { return nil }
