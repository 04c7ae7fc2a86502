// Package template implements the tiny streaming format language used for
// file sink paths and messages: anything outside `{}` is literal text, and
// `{name}` or `{name1/name2}` is a placeholder resolved against a record by
// walking the slash-separated field path through nested objects.
package template

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/logship/pkg/value"
	"github.com/pkg/errors"
)

// ErrEOFWhileParsingPlaceholder poisons a tokenizer that hits end of input
// inside an unclosed placeholder.
var ErrEOFWhileParsingPlaceholder = errors.New("unexpected end of format while parsing placeholder")

// ErrTypeMismatch is returned when a placeholder path lands on an array or
// object; only scalars render.
var ErrTypeMismatch = errors.New("type mismatch - only scalar values render")

// KeyNotFoundError identifies the key at which placeholder resolution failed.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenPlaceholder
	TokenError
)

// Token is one element of a tokenized format string, built once at output
// configuration time and replayed per record.
type Token struct {
	Kind TokenKind
	Text string   // literal run
	Path []string // ordered placeholder field path
	Err  error    // tokenizer error, fatal for every resolution
}

func Literal(text string) Token        { return Token{Kind: TokenLiteral, Text: text} }
func Placeholder(path ...string) Token { return Token{Kind: TokenPlaceholder, Path: path} }

type tokenizerState int

const (
	tokUndefined tokenizerState = iota
	tokParsePlaceholder
	tokBroken
)

// Tokenizer is a two-state streaming tokenizer over a format string,
// mirroring the value parser's fail-fast discipline: end of input inside a
// placeholder is terminal and poisons all further tokens.
type Tokenizer struct {
	in    []rune
	pos   int
	state tokenizerState
	err   error
}

func NewTokenizer(format string) *Tokenizer {
	return &Tokenizer{in: []rune(format)}
}

func (t *Tokenizer) next() (rune, bool) {
	if t.pos >= len(t.in) {
		return 0, false
	}
	ch := t.in[t.pos]
	t.pos++
	return ch, true
}

// Next pulls the next token; the second return is false at end of input.
func (t *Tokenizer) Next() (Token, bool) {
	switch t.state {
	case tokParsePlaceholder:
		return t.parsePlaceholder(), true
	case tokBroken:
		return Token{Kind: TokenError, Err: t.err}, true
	}

	ch, ok := t.next()
	if !ok {
		return Token{}, false
	}
	if ch == '{' {
		return t.parsePlaceholder(), true
	}
	return t.parseLiteral(ch), true
}

func (t *Tokenizer) parseLiteral(first rune) Token {
	var sb strings.Builder
	sb.WriteRune(first)

	for {
		ch, ok := t.next()
		if !ok {
			break
		}
		if ch == '{' {
			t.state = tokParsePlaceholder
			break
		}
		sb.WriteRune(ch)
	}
	return Literal(sb.String())
}

func (t *Tokenizer) parsePlaceholder() Token {
	var sb strings.Builder
	for {
		ch, ok := t.next()
		if !ok {
			t.state = tokBroken
			t.err = ErrEOFWhileParsingPlaceholder
			return Token{Kind: TokenError, Err: t.err}
		}
		if ch == '}' {
			t.state = tokUndefined
			return Placeholder(strings.Split(sb.String(), "/")...)
		}
		sb.WriteRune(ch)
	}
}

// Template is the replayable token sequence for one format string.
type Template []Token

// Compile tokenizes a format string. A tokenizer error still yields the
// token sequence (the error token included) alongside the error, so callers
// can choose between failing configuration and dropping per record.
func Compile(format string) (Template, error) {
	var tpl Template
	tok := NewTokenizer(format)
	for {
		token, ok := tok.Next()
		if !ok {
			return tpl, nil
		}
		tpl = append(tpl, token)
		if token.Kind == TokenError {
			// The tokenizer only repeats itself after an error.
			return tpl, token.Err
		}
	}
}

// Resolve renders one token against a record. Literals resolve to their own
// text; placeholders walk their field path through nested objects and render
// the scalar they land on.
func Resolve(token Token, record value.Value) (string, error) {
	switch token.Kind {
	case TokenLiteral:
		return token.Text, nil
	case TokenPlaceholder:
		current := record
		for _, key := range token.Path {
			next, ok := current.Find(key)
			if !ok {
				return "", &KeyNotFoundError{Key: key}
			}
			current = next
		}
		switch current.Kind() {
		case value.KindArray, value.KindObject:
			return "", ErrTypeMismatch
		default:
			return current.Render(), nil
		}
	default:
		return "", token.Err
	}
}

// Render resolves every token in order and concatenates the results; the
// first failing token aborts the whole render.
func (t Template) Render(record value.Value) (string, error) {
	var sb strings.Builder
	for _, token := range t {
		s, err := Resolve(token, record)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}
