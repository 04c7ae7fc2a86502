package jsonstream

import (
	"io"
	"math"
	"strings"
)

// EventKind discriminates the flat parse event stream.
type EventKind int

const (
	EventNull EventKind = iota
	EventBool
	EventNumber
	EventString
	EventArrayBegin
	EventArrayEnd
	EventObjectBegin
	EventObjectEnd
	EventError
)

// Event is one step of the flat parse stream: a scalar, a container
// boundary, or a terminal error.
type Event struct {
	Kind   EventKind
	Bool   bool
	Number float64
	Str    string
	Err    error
}

func NullEvent() Event            { return Event{Kind: EventNull} }
func BoolEvent(b bool) Event      { return Event{Kind: EventBool, Bool: b} }
func NumberEvent(n float64) Event { return Event{Kind: EventNumber, Number: n} }
func StringEvent(s string) Event  { return Event{Kind: EventString, Str: s} }
func ArrayBegin() Event           { return Event{Kind: EventArrayBegin} }
func ArrayEnd() Event             { return Event{Kind: EventArrayEnd} }
func ObjectBegin() Event          { return Event{Kind: EventObjectBegin} }
func ObjectEnd() Event            { return Event{Kind: EventObjectEnd} }
func ErrorEvent(err error) Event  { return Event{Kind: EventError, Err: err} }

type parserState int

const (
	stateUndefined parserState = iota // at start or between top-level documents
	stateBroken                       // after any error; the parser always fails from now on
	stateParseArray                   // just after array begin
	stateParseArrayMaybe              // just after an array element
	stateParseObject                  // just after object begin
	stateParseObjectPair              // just after an object key
	stateParseObjectMaybe             // just after an object value
)

// Parser is a resumable streaming JSON parser. It is a recursive-descent
// parser reshaped into an explicit state machine: recursion is represented as
// a state value plus a stack of saved states, so events are produced one pull
// at a time and arbitrarily deep nesting never touches the call stack.
//
// After a complete top-level document the state returns to undefined and the
// same parser keeps going on the next document, so multiple concatenated
// JSON values over one stream (e.g. a socket) parse back-to-back.
type Parser struct {
	r       io.RuneReader
	ch      rune
	eof     bool
	handled bool
	state   parserState
	stack   []parserState
}

// NewParser constructs a parser over a lazy stream of characters. Read
// errors are treated as end of input.
func NewParser(r io.RuneReader) *Parser {
	return &Parser{r: r, handled: true}
}

// NewParserString is a convenience for parsing in-memory input.
func NewParserString(s string) *Parser {
	return NewParser(strings.NewReader(s))
}

// Next pulls the next parse event. The second return is false only on a
// clean end of input between top-level documents; a broken parser keeps
// yielding an ErrBrokenParser event forever.
func (p *Parser) Next() (Event, bool) {
	if p.state == stateBroken {
		return ErrorEvent(ErrBrokenParser), true
	}
	if p.handled {
		p.handled = false
		p.bump()
	}
	return p.parse()
}

func (p *Parser) parse() (Event, bool) {
	switch p.state {
	case stateUndefined:
		p.whitespace()
		if p.eof {
			return Event{}, false
		}
		return p.parseValue(), true
	case stateParseArray:
		return p.parseArray(true), true
	case stateParseArrayMaybe:
		return p.parseArray(false), true
	case stateParseObject:
		return p.parseObject(true), true
	case stateParseObjectPair:
		return p.parseObjectValue(), true
	case stateParseObjectMaybe:
		return p.parseObject(false), true
	}
	return ErrorEvent(ErrBrokenParser), true
}

func (p *Parser) parseValue() Event {
	switch {
	case p.ch == 'n':
		return p.complete("ull", NullEvent())
	case p.ch == 't':
		return p.complete("rue", BoolEvent(true))
	case p.ch == 'f':
		return p.complete("alse", BoolEvent(false))
	case p.ch == '-' || (p.ch >= '0' && p.ch <= '9'):
		return p.parseNumber()
	case p.ch == '"':
		p.bump()
		return p.parseString()
	case p.ch == '[':
		p.stack = append(p.stack, p.state)
		p.state = stateParseArray
		p.handled = true
		return ArrayBegin()
	case p.ch == '{':
		p.stack = append(p.stack, p.state)
		p.state = stateParseObject
		p.handled = true
		return ObjectBegin()
	default:
		return p.syntaxError(ExpectedValue)
	}
}

func (p *Parser) parseArray(first bool) Event {
	p.whitespace()
	if p.eof {
		return p.syntaxError(EOFWhileParsingArray)
	}

	switch p.ch {
	case ']':
		p.state = p.pop()
		p.handled = true
		return ArrayEnd()
	case ',':
		p.bump()
		if first {
			return p.syntaxError(ExpectedValueOrArrayEnd)
		}
		return p.parseArray(false)
	default:
		p.state = stateParseArrayMaybe
		return p.parseValue()
	}
}

func (p *Parser) parseObject(first bool) Event {
	p.whitespace()
	if p.eof {
		return p.syntaxError(EOFWhileParsingObject)
	}

	switch p.ch {
	case '}':
		p.state = p.pop()
		p.handled = true
		return ObjectEnd()
	case '"':
		p.state = stateParseObjectPair
		p.bump()
		return p.parseString()
	case ',':
		p.bump()
		if first {
			return p.syntaxError(ExpectedKeyOrObjectEnd)
		}
		return p.parseObject(false)
	default:
		return p.syntaxError(ExpectedKeyOrObjectEnd)
	}
}

func (p *Parser) parseObjectValue() Event {
	p.whitespace()
	if p.eof {
		return p.syntaxError(EOFWhileParsingObjectColon)
	}
	if p.ch != ':' {
		return p.syntaxError(ExpectedColon)
	}

	p.bump()
	p.whitespace()
	if p.eof {
		return p.syntaxError(EOFWhileParsingObjectValue)
	}

	p.state = stateParseObjectMaybe
	return p.parseValue()
}

func (p *Parser) parseNumber() Event {
	n, code, ok := p.parseNumberValue()
	if !ok {
		p.state = stateBroken
		return ErrorEvent(&SyntaxError{Code: code})
	}
	return NumberEvent(n)
}

// parseNumberValue parses a number digit by digit; nothing is delegated to a
// library float parser. A leading zero may not be followed by another digit,
// and a missing required digit anywhere is a syntax error.
func (p *Parser) parseNumberValue() (float64, ErrorCode, bool) {
	negative := false
	if p.ch == '-' {
		p.bump()
		negative = true
	}

	var integer uint64
	switch {
	case p.eof:
		return 0, InvalidNumber, false
	case p.ch == '0':
		p.bump()
		if !p.eof && p.ch >= '0' && p.ch <= '9' {
			return 0, InvalidNumber, false
		}
	case p.ch >= '1' && p.ch <= '9':
		for !p.eof && p.ch >= '0' && p.ch <= '9' {
			integer *= 10
			integer += uint64(p.ch - '0')
			p.bump()
		}
	default:
		return 0, InvalidNumber, false
	}

	fraction := 0.0
	if !p.eof && p.ch == '.' {
		p.bump()
		if p.eof || p.ch < '0' || p.ch > '9' {
			return 0, InvalidNumber, false
		}
		scale := 1.0
		for !p.eof && p.ch >= '0' && p.ch <= '9' {
			scale /= 10.0
			fraction += float64(p.ch-'0') * scale
			p.bump()
		}
	}

	mantissa := float64(integer) + fraction

	exponent := 0
	negativeExponent := false
	if !p.eof && (p.ch == 'e' || p.ch == 'E') {
		p.bump()
		if !p.eof && p.ch == '+' {
			p.bump()
		} else if !p.eof && p.ch == '-' {
			negativeExponent = true
			p.bump()
		}
		if p.eof || p.ch < '0' || p.ch > '9' {
			return 0, InvalidNumber, false
		}
		for !p.eof && p.ch >= '0' && p.ch <= '9' {
			exponent *= 10
			exponent += int(p.ch - '0')
			p.bump()
		}
	}

	result := mantissa
	if exponent != 0 {
		if negativeExponent {
			exponent = -exponent
		}
		result = mantissa * math.Pow(10, float64(exponent))
	}

	// Leave the terminating character pending so the next pull re-examines it.
	p.handled = false

	if p.eof {
		switch p.state {
		case stateParseArrayMaybe:
			return 0, EOFWhileParsingArray, false
		case stateParseObjectMaybe:
			return 0, EOFWhileParsingObjectValue, false
		}
	}

	if negative {
		result = -result
	}
	return result, 0, true
}

func (p *Parser) parseString() Event {
	s, code, ok := p.parseStringValue()
	if !ok {
		p.state = stateBroken
		return ErrorEvent(&SyntaxError{Code: code})
	}
	return StringEvent(s)
}

func (p *Parser) parseStringValue() (string, ErrorCode, bool) {
	var sb strings.Builder
	escape := false

	for {
		if p.eof {
			// End-of-input mid-string distinguishes keys from values for
			// diagnostic parity.
			if p.state == stateParseObjectPair {
				return "", EOFWhileParsingObjectKey, false
			}
			return "", EOFWhileParsingString, false
		}

		if escape {
			switch p.ch {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				n, code, ok := p.decodeHexEscape()
				if !ok {
					return "", code, false
				}
				switch {
				case n >= 0xDC00 && n <= 0xDFFF:
					return "", LoneLeadingSurrogateInHexEscape, false
				case n >= 0xD800 && n <= 0xDBFF:
					// Surrogate pairs are not decoded; a high surrogate on
					// its own is no valid scalar either.
					return "", InvalidUnicodeCodePoint, false
				default:
					sb.WriteRune(rune(n))
				}
			default:
				return "", InvalidEscape, false
			}
			escape = false
		} else if p.ch == '\\' {
			escape = true
		} else if p.ch == '"' {
			p.handled = true
			return sb.String(), 0, true
		} else {
			sb.WriteRune(p.ch)
		}

		p.bump()
	}
}

func (p *Parser) decodeHexEscape() (uint32, ErrorCode, bool) {
	var n uint32
	for i := 0; i < 4; i++ {
		p.bump()
		if p.eof {
			return 0, InvalidEscape, false
		}
		switch {
		case p.ch >= '0' && p.ch <= '9':
			n = n*16 + uint32(p.ch-'0')
		case p.ch >= 'a' && p.ch <= 'f':
			n = n*16 + uint32(p.ch-'a') + 10
		case p.ch >= 'A' && p.ch <= 'F':
			n = n*16 + uint32(p.ch-'A') + 10
		default:
			return 0, InvalidEscape, false
		}
	}
	return n, 0, true
}

func (p *Parser) complete(rest string, ev Event) Event {
	for _, want := range rest {
		p.bump()
		if p.eof || p.ch != want {
			return p.syntaxError(ExpectedValue)
		}
	}
	p.handled = true
	return ev
}

func (p *Parser) syntaxError(code ErrorCode) Event {
	p.state = stateBroken
	return ErrorEvent(&SyntaxError{Code: code})
}

func (p *Parser) whitespace() {
	for !p.eof && (p.ch == ' ' || p.ch == '\n' || p.ch == '\t' || p.ch == '\r') {
		p.bump()
	}
}

func (p *Parser) bump() {
	ch, _, err := p.r.ReadRune()
	if err != nil {
		p.eof = true
		p.ch = 0
		return
	}
	p.ch = ch
}

func (p *Parser) pop() parserState {
	s := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return s
}
