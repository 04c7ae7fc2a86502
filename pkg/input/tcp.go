package input

import (
	"context"
	"io"
	"net"

	"github.com/go-go-golems/logship/pkg/codec"
	"github.com/go-go-golems/logship/pkg/pipeline"
	"github.com/go-go-golems/logship/pkg/value"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TCP accepts connections and decodes each one into records with a fresh
// codec decoder, one goroutine per connection.
type TCP struct {
	addr  string
	codec codec.Codec
}

func NewTCP(addr string, c codec.Codec) *TCP {
	return &TCP{addr: addr, codec: c}
}

func (t *TCP) Name() string { return "tcp" }

func (t *TCP) Run(ctx context.Context, out chan<- pipeline.Record) error {
	logger := log.With().Str("component", "input.tcp").Str("addr", t.addr).Logger()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.addr)
	if err != nil {
		return errors.Wrapf(err, "bind tcp input on %s", t.addr)
	}
	logger.Info().Msg("tcp listener running")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info().Msg("tcp listener stopped")
				return nil
			}
			logger.Warn().Err(err).Msg("error while accepting connection")
			continue
		}
		go t.serve(ctx, conn, out)
	}
}

func (t *TCP) serve(ctx context.Context, conn net.Conn, out chan<- pipeline.Record) {
	connID := uuid.NewString()
	logger := log.With().
		Str("component", "input.tcp").
		Str("conn", connID).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	logger.Debug().Msg("connection accepted")

	defer func() {
		_ = conn.Close()
		logger.Debug().Msg("stopped serving connection")
	}()

	dec := t.codec.NewDecoder(conn)
	for {
		record, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("dropping connection: decode error")
			}
			return
		}
		if record.Kind() != value.KindObject {
			logger.Warn().
				Str("kind", record.Kind().String()).
				Msg("dropping non-object document")
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- record:
		}
	}
}
