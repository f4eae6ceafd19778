package extract

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixdegrees/wikigraph/lexer"
)

const sampleDump = `-- MySQL dump
DROP TABLE IF EXISTS page;
CREATE TABLE page (id int);
LOCK TABLES page WRITE;
/*!40000 ALTER TABLE page DISABLE KEYS */;
INSERT INTO ` + "`page`" + ` VALUES (1,0,'Foo'),(2,0,'Bar');
INSERT INTO ` + "`page`" + ` VALUES (3,1,'Talk:Foo');
UNLOCK TABLES;
`

func allTuples(t *testing.T, dump string) [][]lexer.Value {
	t.Helper()
	ex, err := New(strings.NewReader(dump))
	require.NoError(t, err)

	var tuples [][]lexer.Value
	for {
		tup, err := ex.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		tuples = append(tuples, tup)
	}
	return tuples
}

func TestExtractsAllTuplesAcrossStatements(t *testing.T) {
	tuples := allTuples(t, sampleDump)
	require.Len(t, tuples, 3)
	assert.Equal(t, lexer.Int(1).Value, tuples[0][0])
	assert.Equal(t, lexer.Str("Foo").Value, tuples[0][2])
	assert.Equal(t, lexer.Int(2).Value, tuples[1][0])
	assert.Equal(t, lexer.Int(3).Value, tuples[2][0])
	assert.Equal(t, lexer.Str("Talk:Foo").Value, tuples[2][2])
}

func TestEmptyDumpYieldsNoTuples(t *testing.T) {
	tuples := allTuples(t, "-- nothing here\nDISABLE KEYS\n")
	assert.Empty(t, tuples)
}

func TestSyntaxErrorNamesOffendingToken(t *testing.T) {
	dump := "DISABLE KEYS\nINSERT INTO `t` VALUES (1, 2 3);\n"
	ex, err := New(strings.NewReader(dump))
	require.NoError(t, err)

	_, err = ex.Next()
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, lexer.Int(3), synErr.Token)
}

func TestStreamPoisonedAfterSyntaxError(t *testing.T) {
	dump := "DISABLE KEYS\nINSERT INTO `t` VALUES (1 2);\n"
	ex, err := New(strings.NewReader(dump))
	require.NoError(t, err)

	_, err1 := ex.Next()
	require.Error(t, err1)
	_, err2 := ex.Next()
	require.Error(t, err2)
}

func TestCleanEOFAfterTerminatingSemicolon(t *testing.T) {
	dump := "DISABLE KEYS\nINSERT INTO `t` VALUES (1);\n"
	tuples := allTuples(t, dump)
	require.Len(t, tuples, 1)
}
