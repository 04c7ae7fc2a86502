package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRequiredField is the field every accepted record must carry.
const DefaultRequiredField = "message"

type outputChannel struct {
	name string
	ch   chan Record
}

// Dispatcher is the single ingestion loop: it pulls records off the shared
// ingestion channel, applies the required-field check, and multicasts
// accepted records to one bounded channel per output. Each send is
// non-blocking, so a slow or stalled output can fill and drop on its own
// channel without ever delaying ingestion or delivery to the other outputs.
type Dispatcher struct {
	requiredField string
	outputs       []outputChannel
}

func NewDispatcher(requiredField string) *Dispatcher {
	if requiredField == "" {
		requiredField = DefaultRequiredField
	}
	return &Dispatcher{requiredField: requiredField}
}

// Register adds an output channel of the given capacity and returns its
// receive side. All registration happens before Run.
func (d *Dispatcher) Register(name string, buffer int) <-chan Record {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Record, buffer)
	d.outputs = append(d.outputs, outputChannel{name: name, ch: ch})
	return ch
}

// Run blocks on the ingestion channel until it closes or the context is
// cancelled. Records lacking the required field are dropped with a warning;
// no backpressure reaches the senders for them.
func (d *Dispatcher) Run(ctx context.Context, in <-chan Record) error {
	logger := log.With().Str("component", "dispatch").Logger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-in:
			if !ok {
				return nil
			}
			if _, found := record.Find(d.requiredField); !found {
				logger.Warn().
					Str("field", d.requiredField).
					Str("record", record.JSON()).
					Msg("dropping record: required field missing")
				continue
			}
			d.dispatch(record, logger)
		}
	}
}

func (d *Dispatcher) dispatch(record Record, logger zerolog.Logger) {
	for _, out := range d.outputs {
		// Every output gets its own clone; outputs must never observe each
		// other's mutations.
		select {
		case out.ch <- record.Clone():
		default:
			logger.Warn().
				Str("output", out.name).
				Msg("output lagging, dropping record for it")
		}
	}
}
