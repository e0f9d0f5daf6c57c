package parser_test

import (
	"testing"

	"github.com/KaramelBytes/eqviz-cli/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewCSV(t *testing.T) {
	content := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"Pump-1,Pump,120,5.2,110\n" +
		"Valve-1,Valve,60,4.1,105\n"
	p, err := parser.PreviewCSV("plant.csv", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, ',', p.Delimiter)
	assert.Equal(t, []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}, p.Columns)
	assert.Equal(t, 2, p.Rows)
}

func TestPreviewCSV_EmptyAndBroken(t *testing.T) {
	p, err := parser.PreviewCSV("empty.csv", nil)
	require.NoError(t, err)
	assert.Zero(t, p.Rows)
	assert.Empty(t, p.Columns)

	_, err = parser.PreviewCSV("broken.csv", []byte("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', parser.SniffDelimiter("data.csv", []byte("a;b;c\n1;2;3\n")))
	assert.Equal(t, '\t', parser.SniffDelimiter("data.tsv", []byte("a,b\n")))
	assert.Equal(t, '\t', parser.SniffDelimiter("data.txt", []byte("a\tb\tc\n")))
	assert.Equal(t, ',', parser.SniffDelimiter("data.csv", []byte("single\n")))
}

func TestReadCSVRaggedRows(t *testing.T) {
	records, err := parser.ReadCSV([]byte("a,b\n1\n2,3,4\n"), ',')
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Len(t, records[2], 3)
}
