// Package extract turns a stream of SQL dump tokens into a stream of
// tuples, recognizing only the grammar a Wikimedia dump actually uses:
//
//	file        := (insert_stmt)*
//	insert_stmt := "INSERT" "INTO" <table> "VALUES" tuple ("," tuple)* ";"
//	tuple       := "(" value ("," value)* ")"
//	value       := String | Integer | Float | Null
//
// It is resumable across INSERT statements within one file: each call to
// Next yields the next tuple, regardless of which statement produced it.
// A statement that does not begin with INSERT (such as a dump's trailing
// UNLOCK TABLES) is skipped up to its terminating ';'.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sixdegrees/wikigraph/lexer"
)

// Value is a single column of a tuple.
type Value = lexer.Value

const headerMarker = "DISABLE KEYS"

// SyntaxError reports an unexpected token during tuple parsing, naming
// both the offending token and what the grammar expected there.
type SyntaxError struct {
	Token    lexer.Token
	Expected string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("extract: unexpected token %v, expecting %s", e.Token, e.Expected)
}

// Extractor consumes a Lexer's token stream and yields tuples.
type Extractor struct {
	lex           *lexer.Lexer
	pendingHeader bool // true: next Next() must parse (or cleanly skip) an insert_stmt header
	eof           bool
	poisoned      error
}

// New discards the dump preamble (CREATE TABLE, comments, LOCK TABLES)
// by scanning lines of r until one containing "DISABLE KEYS" has been
// consumed, then hands the remainder of the stream to a Lexer.
func New(r io.Reader) (*Extractor, error) {
	buffered := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := buffered.ReadString('\n')
		if strings.Contains(line, headerMarker) {
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extract: reading dump header: %w", err)
		}
	}

	return &Extractor{
		lex:           lexer.New(buffered),
		pendingHeader: true,
	}, nil
}

// Next returns the next tuple, io.EOF at a clean end of stream (nothing
// but skipped non-INSERT statements left after a terminating ';'),
// io.ErrUnexpectedEOF when the stream ends inside an insert_stmt, or a
// diagnostic error. Once either has been returned, every subsequent call
// returns the same result.
func (e *Extractor) Next() ([]Value, error) {
	if e.poisoned != nil {
		return nil, e.poisoned
	}
	if e.eof {
		return nil, io.EOF
	}

	if e.pendingHeader {
		if err := e.expectInsertInto(); err != nil {
			if errors.Is(err, io.EOF) {
				e.eof = true
				return nil, io.EOF
			}
			e.poisoned = err
			return nil, err
		}
		e.pendingHeader = false
	}

	vals, err := e.readTuple()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		e.poisoned = err
		return nil, err
	}

	tok, err := e.token()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		e.poisoned = err
		return nil, err
	}
	switch {
	case tok.IsSymbol(","):
		// same insert_stmt continues with another tuple
	case tok.IsSymbol(";"):
		e.pendingHeader = true
	default:
		err := &SyntaxError{Token: tok, Expected: "',' or ';'"}
		e.poisoned = err
		return nil, err
	}

	return vals, nil
}

func (e *Extractor) token() (lexer.Token, error) {
	tok, err := e.lex.Next()
	if err == io.EOF {
		return lexer.Token{}, io.EOF
	}
	if err != nil {
		return lexer.Token{}, fmt.Errorf("extract: %w", err)
	}
	return tok, nil
}

func (e *Extractor) expectSymbol(s string) error {
	tok, err := e.token()
	if err != nil {
		return err
	}
	if !tok.IsSymbol(s) {
		return &SyntaxError{Token: tok, Expected: fmt.Sprintf("%q", s)}
	}
	return nil
}

func (e *Extractor) expectInsertInto() error {
	for {
		tok, err := e.token()
		if err != nil {
			return err
		}
		if tok.IsSymbol("INSERT") {
			break
		}
		// Not an insert_stmt: skip it up to its ';' (or the end of stream).
		for !tok.IsSymbol(";") {
			if tok, err = e.token(); err != nil {
				return err
			}
		}
	}

	err := e.expectSymbol("INTO")
	if err == nil {
		_, err = e.token() // table name symbol, discarded
	}
	if err == nil {
		err = e.expectSymbol("VALUES")
	}
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (e *Extractor) readTuple() ([]Value, error) {
	if err := e.expectSymbol("("); err != nil {
		return nil, err
	}

	var tuple []Value
	for {
		tok, err := e.token()
		if err != nil {
			return nil, err
		}
		if tok.Kind != lexer.TokenValue {
			return nil, &SyntaxError{Token: tok, Expected: "value"}
		}
		tuple = append(tuple, tok.Value)

		tok, err = e.token()
		if err != nil {
			return nil, err
		}
		if tok.IsSymbol(",") {
			continue
		}
		if tok.IsSymbol(")") {
			break
		}
		return nil, &SyntaxError{Token: tok, Expected: "')' or ','"}
	}

	return tuple, nil
}
