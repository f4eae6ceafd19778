// Package lexer turns a byte stream into a stream of SQL dump tokens
// without ever materialising the whole stream in memory.
//
// It recognizes exactly the subset of MySQL dump syntax the rest of this
// module needs: symbols (keywords, punctuation, backtick-quoted names)
// and the four value kinds a dump's INSERT statements carry (string,
// integer, float, null). Anything more exotic than that (expressions,
// comments inside a tuple, multi-statement transactions) is out of scope
// — a dump never needs it.
package lexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValueKind discriminates the payload carried by a Value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInteger
	ValueFloat
	ValueNull
)

// Value is one of the four leaf value kinds a dump tuple can contain.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return strconv.Quote(v.Str)
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	default:
		return "NULL"
	}
}

// TokenKind discriminates a Token's two shapes.
type TokenKind int

const (
	TokenSymbol TokenKind = iota
	TokenValue
)

// Token is either a Symbol (keyword, punctuation, quoted name) or a Value.
type Token struct {
	Kind   TokenKind
	Symbol string
	Value  Value
}

func (t Token) String() string {
	if t.Kind == TokenSymbol {
		return t.Symbol
	}
	return t.Value.String()
}

// IsSymbol reports whether this token is the symbol s.
func (t Token) IsSymbol(s string) bool {
	return t.Kind == TokenSymbol && t.Symbol == s
}

func Sym(s string) Token { return Token{Kind: TokenSymbol, Symbol: s} }
func Str(s string) Token { return Token{Kind: TokenValue, Value: Value{Kind: ValueString, Str: s}} }
func Int(n int64) Token  { return Token{Kind: TokenValue, Value: Value{Kind: ValueInteger, Int: n}} }
func Flt(f float64) Token {
	return Token{Kind: TokenValue, Value: Value{Kind: ValueFloat, Flt: f}}
}
func Null() Token { return Token{Kind: TokenValue, Value: Value{Kind: ValueNull}} }

// Diagnostic errors. All of them poison the stream: once one is returned,
// every later call to Next returns io.ErrClosedPipe, never a fresh token.
var (
	ErrUnterminatedString = errors.New("lexer: unterminated string literal")
	ErrUnterminatedQuoted = errors.New("lexer: unterminated backtick-quoted identifier")

	// ErrInvalidUTF8 is returned the moment a malformed byte sequence is
	// read, rather than being silently replaced with U+FFFD.
	ErrInvalidUTF8 = errors.New("lexer: invalid UTF-8 encoding")
)

// InvalidEscapeError reports a backslash escape the dialect doesn't define.
type InvalidEscapeError struct {
	Char rune
}

func (e *InvalidEscapeError) Error() string {
	return fmt.Sprintf("lexer: invalid escape sequence \\%c", e.Char)
}

// Lexer produces a lazy, non-restartable sequence of Tokens from a byte
// stream. It owns exactly one reusable scratch buffer, cleared at the
// start of every token.
type Lexer struct {
	r       *bufio.Reader
	scratch strings.Builder
	poisoned bool
	done    bool
}

// New wraps src. Every rune is read through readRune, which validates it
// as UTF-8 as bytes are consumed: a malformed sequence surfaces as
// ErrInvalidUTF8 at the point it occurs, rather than being silently
// replaced.
func New(src io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReaderSize(src, 4096)}
}

// readRune reads one rune, turning bufio.Reader's "invalid encoding"
// convention (return utf8.RuneError with size 1 and a nil error) into an
// explicit ErrInvalidUTF8, so no caller can mistake a replacement
// character for a legitimately decoded one.
func (l *Lexer) readRune() (rune, int, error) {
	c, size, err := l.r.ReadRune()
	if err != nil {
		return c, size, err
	}
	if c == utf8.RuneError && size == 1 {
		return 0, 0, ErrInvalidUTF8
	}
	return c, size, nil
}

// Next returns the next token, io.EOF at a clean end of stream, or a
// diagnostic error. Once io.EOF has been returned, every subsequent call
// returns io.EOF; once an error has been returned, every subsequent call
// returns io.ErrClosedPipe.
func (l *Lexer) Next() (Token, error) {
	if l.poisoned {
		return Token{}, io.ErrClosedPipe
	}
	if l.done {
		return Token{}, io.EOF
	}

	if err := l.skipWhitespace(); err != nil {
		l.poisoned = true
		return Token{}, err
	}

	c, _, err := l.readRune()
	if err == io.EOF {
		l.done = true
		return Token{}, io.EOF
	}
	if err != nil {
		l.poisoned = true
		return Token{}, err
	}

	var tok Token
	switch {
	case isDigit(c):
		tok, err = l.number(c)
	case c == '-':
		next, _, perr := l.readRune()
		if perr == nil && isDigit(next) {
			tok, err = l.number(c, next)
		} else {
			if perr == nil {
				_ = l.r.UnreadRune()
			}
			tok = Sym("-")
		}
	case isAlpha(c):
		tok, err = l.identifier(c)
	case c == '`':
		tok, err = l.quotedIdentifier()
	case c == '\'':
		tok, err = l.stringLiteral()
	default:
		tok = Sym(string(c))
	}

	if err != nil {
		l.poisoned = true
		return Token{}, err
	}
	return tok, nil
}

func (l *Lexer) skipWhitespace() error {
	for {
		c, _, err := l.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isASCIISpace(c) {
			return l.r.UnreadRune()
		}
	}
}

func (l *Lexer) number(lead ...rune) (Token, error) {
	l.scratch.Reset()
	for _, c := range lead {
		l.scratch.WriteRune(c)
	}
	if err := l.collectDigits(); err != nil {
		return Token{}, err
	}

	c, _, err := l.readRune()
	if err == nil && c == '.' {
		l.scratch.WriteRune('.')
		if err := l.collectDigits(); err != nil {
			return Token{}, err
		}
		f, perr := strconv.ParseFloat(l.scratch.String(), 64)
		if perr != nil {
			return Token{}, fmt.Errorf("lexer: parsing float %q: %w", l.scratch.String(), perr)
		}
		return Flt(f), nil
	}
	if err == nil {
		_ = l.r.UnreadRune()
	} else if err != io.EOF {
		return Token{}, err
	}

	n, perr := strconv.ParseInt(l.scratch.String(), 10, 64)
	if perr != nil {
		return Token{}, fmt.Errorf("lexer: parsing integer %q: %w", l.scratch.String(), perr)
	}
	return Int(n), nil
}

func (l *Lexer) collectDigits() error {
	for {
		c, _, err := l.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isDigit(c) {
			return l.r.UnreadRune()
		}
		l.scratch.WriteRune(c)
	}
}

func (l *Lexer) identifier(lead rune) (Token, error) {
	l.scratch.Reset()
	l.scratch.WriteRune(lead)
	for {
		c, _, err := l.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if !isAlphaNumeric(c) {
			if err := l.r.UnreadRune(); err != nil {
				return Token{}, err
			}
			break
		}
		l.scratch.WriteRune(c)
	}

	if l.scratch.String() == "NULL" {
		return Null(), nil
	}
	return Sym(l.scratch.String()), nil
}

func (l *Lexer) quotedIdentifier() (Token, error) {
	l.scratch.Reset()
	for {
		c, _, err := l.readRune()
		if err == io.EOF {
			return Token{}, ErrUnterminatedQuoted
		}
		if err != nil {
			return Token{}, err
		}
		if c == '`' {
			return Sym(l.scratch.String()), nil
		}
		l.scratch.WriteRune(c)
	}
}

func (l *Lexer) stringLiteral() (Token, error) {
	l.scratch.Reset()
	for {
		c, _, err := l.readRune()
		if err == io.EOF {
			return Token{}, ErrUnterminatedString
		}
		if err != nil {
			return Token{}, err
		}

		switch c {
		case '\\':
			esc, _, err := l.readRune()
			if err == io.EOF {
				return Token{}, ErrUnterminatedString
			}
			if err != nil {
				return Token{}, err
			}
			switch esc {
			case '\'', '\\', '"':
				l.scratch.WriteRune(esc)
			default:
				return Token{}, &InvalidEscapeError{Char: esc}
			}
		case '\'':
			next, _, err := l.readRune()
			if err == nil && next == '\'' {
				l.scratch.WriteRune('\'')
				continue
			}
			if err == nil {
				_ = l.r.UnreadRune()
			} else if err != io.EOF {
				return Token{}, err
			}
			return Str(l.scratch.String()), nil
		default:
			l.scratch.WriteRune(c)
		}
	}
}

func isASCIISpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c rune) bool { return isAlpha(c) || isDigit(c) }
