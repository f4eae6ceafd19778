package lexer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(t *testing.T, input string) []Token {
	t.Helper()
	l := New(strings.NewReader(input))
	var out []Token
	for {
		tok, err := l.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, tok)
	}
	return out
}

func TestSampleTokenization(t *testing.T) {
	input := "  INSERT   INTO `my table` VALUES (1,'l o l', 0), (2, 'o''escape', 'yourmom'   )"
	got := tokens(t, input)

	want := []Token{
		Sym("INSERT"),
		Sym("INTO"),
		Sym("my table"),
		Sym("VALUES"),
		Sym("("),
		Int(1),
		Sym(","),
		Str("l o l"),
		Sym(","),
		Int(0),
		Sym(")"),
		Sym(","),
		Sym("("),
		Int(2),
		Sym(","),
		Str("o'escape"),
		Sym(","),
		Str("yourmom"),
		Sym(")"),
	}

	assert.Equal(t, want, got)
}

func TestEscapeHandling(t *testing.T) {
	got := tokens(t, `'o''escape'`)
	require.Len(t, got, 1)
	assert.Equal(t, Str("o'escape"), got[0])

	got = tokens(t, `'es\"ca\' ped'`)
	require.Len(t, got, 1)
	assert.Equal(t, Str(`es"ca' ped`), got[0])
}

func TestInvalidEscape(t *testing.T) {
	l := New(strings.NewReader(`'bad\nescape'`))
	_, err := l.Next()
	require.Error(t, err)
	var escErr *InvalidEscapeError
	assert.ErrorAs(t, err, &escErr)
}

func TestUnterminatedString(t *testing.T) {
	l := New(strings.NewReader(`'never closes`))
	_, err := l.Next()
	assert.ErrorIs(t, err, ErrUnterminatedString)
}

func TestNegativeNumbers(t *testing.T) {
	got := tokens(t, "-42, -3.5, 7")
	want := []Token{Int(-42), Sym(","), Flt(-3.5), Sym(","), Int(7)}
	assert.Equal(t, want, got)
}

func TestNull(t *testing.T) {
	got := tokens(t, "NULL")
	assert.Equal(t, []Token{Null()}, got)
}

func TestMinusAsSymbol(t *testing.T) {
	got := tokens(t, "1 - 2")
	assert.Equal(t, []Token{Int(1), Sym("-"), Int(2)}, got)
}

func TestWhitespaceIndependence(t *testing.T) {
	a := tokens(t, "INSERT INTO t VALUES (1);")
	b := tokens(t, "INSERT\tINTO\nt\r\nVALUES(1);")
	assert.Equal(t, a, b)
}

func TestInvalidUTF8(t *testing.T) {
	l := New(strings.NewReader("abc\xff\xfedef"))
	_, err := l.Next()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestStreamPoisonedAfterError(t *testing.T) {
	l := New(strings.NewReader(`'unterminated`))
	_, err := l.Next()
	require.Error(t, err)
	_, err2 := l.Next()
	require.Error(t, err2)
}
