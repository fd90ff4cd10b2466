package json

import (
	"bytes"
	"encoding/json"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID    string   `json:"id"`
	Value float64  `json:"value"`
	Tags  []string `json:"tags"`
}

func TestMarshalCorrectness(t *testing.T) {
	record := &testRecord{ID: "r1", Value: 1.5, Tags: []string{"a", "b"}}

	expected, err := json.Marshal(record)
	require.NoError(t, err)

	got, err := Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(got))

	var decoded testRecord
	require.NoError(t, gojson.Unmarshal(got, &decoded))
	assert.Equal(t, *record, decoded)
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("stale")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Equal(t, 0, again.Len())
	PutBuffer(again)

	PutBuffer(nil)
	PutBuffer(bytes.NewBuffer(make([]byte, 0, 2*maxPooledBuffer)))
}

func BenchmarkStdMarshal(b *testing.B) {
	record := &testRecord{ID: "r1", Value: 1.5, Tags: []string{"a", "b", "c"}}
	for i := 0; i < b.N; i++ {
		if _, err := json.Marshal(record); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGoccyMarshal(b *testing.B) {
	record := &testRecord{ID: "r1", Value: 1.5, Tags: []string{"a", "b", "c"}}
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(record); err != nil {
			b.Fatal(err)
		}
	}
}
