// Package pipeline wires inputs, the dispatcher, and output sinks together:
// input workers feed one shared ingestion channel, the dispatcher validates
// and fans records out, and every output consumes its own channel on its own
// goroutine. All cross-component communication is message passing; each
// piece of mutable state is owned by exactly one goroutine.
package pipeline

import (
	"context"

	"github.com/go-go-golems/logship/pkg/value"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Record is the top-level unit moving through the pipeline, semantically an
// object-shaped value.
type Record = value.Value

// Input produces records. Implementations own their transport and codec and
// must only deliver well-formed records; malformed input is theirs to drop
// or log.
type Input interface {
	Name() string
	Run(ctx context.Context, out chan<- Record) error
}

// Output consumes one record at a time and performs a side effect. Feed is
// called from a single goroutine per output; implementations never see
// concurrent calls.
type Output interface {
	Name() string
	Feed(record Record)
}

const DefaultBuffer = 1024

// Pipeline owns the whole record flow for one process.
type Pipeline struct {
	Inputs  []Input
	Outputs []Output

	// Buffer sizes the ingestion channel and each per-output channel.
	Buffer int

	// RequiredField is the dispatcher's validation field, "message" unless
	// configured otherwise.
	RequiredField string
}

// Run starts every input, one worker per output, and the dispatcher, then
// blocks until the context is cancelled or an input fails to start. There is
// no drain: whatever is in flight when the process stops is dropped.
func (p *Pipeline) Run(ctx context.Context) error {
	buffer := p.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	ingest := make(chan Record, buffer)

	g, ctx := errgroup.WithContext(ctx)

	d := NewDispatcher(p.RequiredField)
	for _, out := range p.Outputs {
		out := out
		ch := d.Register(out.Name(), buffer)
		g.Go(func() error {
			log.Debug().Str("output", out.Name()).Msg("output worker started")
			for {
				select {
				case <-ctx.Done():
					return nil
				case record := <-ch:
					out.Feed(record)
				}
			}
		})
	}

	for _, in := range p.Inputs {
		in := in
		g.Go(func() error {
			log.Debug().Str("input", in.Name()).Msg("input started")
			return in.Run(ctx, ingest)
		})
	}

	g.Go(func() error {
		return d.Run(ctx, ingest)
	})

	return g.Wait()
}
