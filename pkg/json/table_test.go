package json

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
	"github.com/ajitpratap0/resultset/pkg/table/tabletest"
)

type fe = scalar.FieldElement

func sampleTable() *table.Table[fe] {
	return table.MustNew(
		tabletest.Pair[fe]("z", columnar.BigIntColumn[fe]{1, -2}),
		tabletest.Pair[fe]("a", columnar.VarCharColumn[fe]{"x", `q"t`}),
		tabletest.Pair[fe]("flag", columnar.BooleanColumn[fe]{true, false}),
		tabletest.Pair[fe]("t", columnar.TinyIntColumn[fe]{-1, 7}),
		tabletest.Pair[fe]("i", columnar.IntColumn[fe]{100, 200}),
		tabletest.Pair[fe]("w", columnar.Int128Column[fe]{{Hi: 1, Lo: 0}, columnar.Int128From64(3)}),
		tabletest.Pair[fe]("s", columnar.ScalarColumn[fe]{scalar.FromInt64(5), scalar.FromInt64(0)}),
	)
}

func TestMarshalTableColumns(t *testing.T) {
	data, err := MarshalTable(sampleTable(), LayoutColumns)
	require.NoError(t, err)

	want := `{"z":[1,-2],"a":["x","q\"t"],"flag":[true,false],"t":[-1,7],` +
		`"i":[100,200],"w":["18446744073709551616","3"],"s":["5","0"]}`
	assert.Equal(t, want, string(data))

	var decoded map[string]interface{}
	require.NoError(t, gojson.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 7)
}

func TestMarshalTableRows(t *testing.T) {
	tbl := table.MustNew(
		tabletest.Pair[fe]("b", columnar.BigIntColumn[fe]{1, 2}),
		tabletest.Pair[fe]("a", columnar.VarCharColumn[fe]{"x", "y"}),
	)
	data, err := MarshalTable(tbl, LayoutRows)
	require.NoError(t, err)
	assert.Equal(t, "{\"b\":1,\"a\":\"x\"}\n{\"b\":2,\"a\":\"y\"}\n", string(data))
}

func TestMarshalTableEmpty(t *testing.T) {
	empty, err := table.New[fe](nil)
	require.NoError(t, err)

	data, err := MarshalTable(empty, LayoutColumns)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	data, err = MarshalTable(empty, LayoutRows)
	require.NoError(t, err)
	assert.Empty(t, data)

	zeroRows := table.MustNew(tabletest.Pair[fe]("a", columnar.BigIntColumn[fe]{}))
	data, err = MarshalTable(zeroRows, LayoutColumns)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[]}`, string(data))
}

func TestMarshalTableUnknownLayout(t *testing.T) {
	_, err := MarshalTable(sampleTable(), "xml")
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))
}

func TestParseLayout(t *testing.T) {
	for in, want := range map[string]Layout{"": LayoutColumns, "columns": LayoutColumns, "rows": LayoutRows, "jsonl": LayoutRows} {
		got, err := ParseLayout(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLayout("csv")
	assert.Error(t, err)
}

func TestTableEncoderColumns(t *testing.T) {
	var buf bytes.Buffer
	enc := NewTableEncoder[fe](&buf, LayoutColumns)

	one := table.MustNew(tabletest.Pair[fe]("a", columnar.BigIntColumn[fe]{1}))
	two := table.MustNew(tabletest.Pair[fe]("a", columnar.BigIntColumn[fe]{2, 3}))
	require.NoError(t, enc.Encode(one))
	require.NoError(t, enc.Encode(two))
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())

	assert.Equal(t, "[{\"a\":[1]},{\"a\":[2,3]}]\n", buf.String())
	assert.Equal(t, int64(buf.Len()), enc.BytesWritten())

	assert.Error(t, enc.Encode(one))
}

func TestTableEncoderNoTables(t *testing.T) {
	var buf bytes.Buffer
	enc := NewTableEncoder[fe](&buf, LayoutColumns)
	require.NoError(t, enc.Close())
	assert.Equal(t, "[]\n", buf.String())
}

func TestTableEncoderRows(t *testing.T) {
	var buf bytes.Buffer
	enc := NewTableEncoder[fe](&buf, LayoutRows)
	require.NoError(t, enc.Encode(sampleTable()))
	require.NoError(t, enc.Encode(sampleTable()))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTableEncoderWriteError(t *testing.T) {
	enc := NewTableEncoder[fe](failingWriter{}, LayoutColumns)
	err := enc.Encode(sampleTable())
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeFile))
}

func BenchmarkMarshalTable(b *testing.B) {
	for _, rows := range []int{100, 10_000} {
		ids := make([]int64, rows)
		names := make([]string, rows)
		for i := range ids {
			ids[i] = int64(i)
			names[i] = fmt.Sprintf("name-%d", i)
		}
		tbl := table.MustNew(
			tabletest.Pair[fe]("id", columnar.BigIntColumn[fe](ids)),
			tabletest.Pair[fe]("name", columnar.VarCharColumn[fe](names)),
		)
		for _, layout := range []Layout{LayoutColumns, LayoutRows} {
			b.Run(fmt.Sprintf("%s/rows=%d", layout, rows), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := MarshalTable(tbl, layout); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
