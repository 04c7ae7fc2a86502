package jsonstream

import "github.com/pkg/errors"

// ErrBrokenParser is returned on every pull after the parser has hit a syntax
// error. A broken parser never recovers.
var ErrBrokenParser = errors.New("broken parser")

// ErrorCode identifies the exact expectation that failed.
type ErrorCode int

const (
	ExpectedValue ErrorCode = iota
	ExpectedValueOrArrayEnd
	ExpectedKeyOrObjectEnd
	ExpectedColon
	EOFWhileParsingString
	EOFWhileParsingArray
	EOFWhileParsingObject
	EOFWhileParsingObjectKey
	EOFWhileParsingObjectColon
	EOFWhileParsingObjectValue
	InvalidEscape
	InvalidNumber
	InvalidUnicodeCodePoint
	LoneLeadingSurrogateInHexEscape
)

var errorMessages = map[ErrorCode]string{
	ExpectedValue:                   "invalid value - expected `null`, `true`, `false`, `number`, `string`, `[` or `{`",
	ExpectedValueOrArrayEnd:         "invalid array - expected value or `]`",
	ExpectedKeyOrObjectEnd:          "invalid object - expected `string` or `}`",
	ExpectedColon:                   "invalid object - expected `:` after object key",
	EOFWhileParsingString:           "unexpected EOF while parsing string",
	EOFWhileParsingArray:            "unexpected EOF while parsing array",
	EOFWhileParsingObject:           "unexpected EOF while parsing object",
	EOFWhileParsingObjectKey:        "unexpected EOF while parsing object key",
	EOFWhileParsingObjectColon:      "unexpected EOF while parsing object colon",
	EOFWhileParsingObjectValue:      "unexpected EOF while parsing object value",
	InvalidEscape:                   "invalid escaped character while parsing string",
	InvalidNumber:                   "invalid number",
	InvalidUnicodeCodePoint:         "invalid unicode code point",
	LoneLeadingSurrogateInHexEscape: "lone leading surrogate in hex escape",
}

// SyntaxError is a terminal parse error; the parser that produced it only
// yields ErrBrokenParser from then on.
type SyntaxError struct {
	Code ErrorCode
}

func (e *SyntaxError) Error() string {
	if msg, ok := errorMessages[e.Code]; ok {
		return msg
	}
	return "syntax error"
}

// IsSyntaxError reports whether err is a SyntaxError with the given code.
func IsSyntaxError(err error, code ErrorCode) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Code == code
}
