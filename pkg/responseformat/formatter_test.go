package responseformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Pe    []float64 `json:"pe,omitempty"`
}

type table []record

func (t table) Header() []string { return []string{"name", "value"} }

func (t table) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, r := range t {
		rows[i] = []string{r.Name, "v" + r.Name}
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "msgpack": FormatMsgPack, "csv": FormatCSV, "text": FormatText} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Compact().Write(&buf, record{Name: "a", Value: 1.5}))
	assert.JSONEq(t, `{"name":"a","value":1.5}`, buf.String())
}

func TestMsgPackUsesJSONTags(t *testing.T) {
	in := record{Name: "a", Value: 2, Pe: []float64{3, 0}}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatMsgPack).Write(&buf, in))

	var generic map[string]any
	require.NoError(t, Decode(bytes.NewReader(buf.Bytes()), &generic))
	assert.Contains(t, generic, "name")
	assert.Contains(t, generic, "pe")

	var out record
	require.NoError(t, Decode(bytes.NewReader(buf.Bytes()), &out))
	assert.Equal(t, in, out)
}

func TestWriteCSVAndText(t *testing.T) {
	data := table{{Name: "a"}, {Name: "b"}}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatCSV).Write(&buf, data))
	assert.Equal(t, "name,value\na,va\nb,vb\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(FormatText).Write(&buf, data))
	assert.Equal(t, "name  value\na     va\nb     vb\n", buf.String())
}

func TestTabularRequired(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, NewFormatter(FormatCSV).Write(&buf, record{}), ErrNotTabular)
	assert.ErrorIs(t, NewFormatter(FormatText).Write(&buf, 3), ErrNotTabular)
}
