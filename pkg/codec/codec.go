// Package codec is the boundary between a raw connection byte stream and
// the records flowing into the pipeline. Any codec is valid as long as it
// yields well-formed records.
package codec

import (
	"bufio"
	"io"

	"github.com/go-go-golems/logship/pkg/jsonstream"
	"github.com/go-go-golems/logship/pkg/value"
	"github.com/pkg/errors"
)

// Decoder pulls one decoded value at a time from an underlying stream,
// returning io.EOF at a clean end of input.
type Decoder interface {
	Next() (value.Value, error)
}

// Codec constructs a fresh decoder per connection.
type Codec interface {
	Name() string
	NewDecoder(r io.Reader) Decoder
}

// JSON decodes back-to-back JSON documents with the streaming value parser.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) NewDecoder(r io.Reader) Decoder {
	return jsonstream.NewBuilder(bufio.NewReader(r))
}

// ForName resolves a configured codec name.
func ForName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	default:
		return nil, errors.Errorf("unknown codec %q", name)
	}
}
