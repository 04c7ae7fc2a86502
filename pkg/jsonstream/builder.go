package jsonstream

import (
	"io"

	"github.com/go-go-golems/logship/pkg/value"
	"github.com/pkg/errors"
)

// Builder folds the parser's event stream into value trees, one per
// top-level document. It is itself a lazy sequence, so it can be driven
// incrementally over a live input stream without waiting for end-of-stream.
type Builder struct {
	parser *Parser
	broken error
}

func NewBuilder(r io.RuneReader) *Builder {
	return &Builder{parser: NewParser(r)}
}

func NewBuilderString(s string) *Builder {
	return &Builder{parser: NewParserString(s)}
}

// Next returns the next complete top-level value. It returns io.EOF on a
// clean end of input; any parse error is fatal for the whole stream and is
// returned again on every later call.
func (b *Builder) Next() (value.Value, error) {
	if b.broken != nil {
		return value.Value{}, b.broken
	}

	ev, ok := b.parser.Next()
	if !ok {
		return value.Value{}, io.EOF
	}

	v, err := b.build(ev)
	if err != nil {
		b.broken = err
		return value.Value{}, err
	}
	return v, nil
}

func (b *Builder) build(ev Event) (value.Value, error) {
	switch ev.Kind {
	case EventNull:
		return value.Null(), nil
	case EventBool:
		return value.Bool(ev.Bool), nil
	case EventNumber:
		return value.Number(ev.Number), nil
	case EventString:
		return value.String(ev.Str), nil
	case EventArrayBegin:
		return b.buildArray()
	case EventObjectBegin:
		return b.buildObject()
	case EventError:
		return value.Value{}, ev.Err
	default:
		return value.Value{}, errors.Errorf("unexpected parse event %d", ev.Kind)
	}
}

func (b *Builder) buildArray() (value.Value, error) {
	var items []value.Value
	for {
		ev, ok := b.parser.Next()
		if !ok {
			return value.Value{}, io.ErrUnexpectedEOF
		}
		if ev.Kind == EventArrayEnd {
			return value.Array(items...), nil
		}
		item, err := b.build(ev)
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, item)
	}
}

func (b *Builder) buildObject() (value.Value, error) {
	fields := map[string]value.Value{}
	for {
		ev, ok := b.parser.Next()
		if !ok {
			return value.Value{}, io.ErrUnexpectedEOF
		}
		switch ev.Kind {
		case EventObjectEnd:
			return value.Object(fields), nil
		case EventString:
			vev, ok := b.parser.Next()
			if !ok {
				return value.Value{}, io.ErrUnexpectedEOF
			}
			field, err := b.build(vev)
			if err != nil {
				return value.Value{}, err
			}
			fields[ev.Str] = field
		case EventError:
			return value.Value{}, ev.Err
		default:
			return value.Value{}, errors.Errorf("object key must be a string, got event %d", ev.Kind)
		}
	}
}
