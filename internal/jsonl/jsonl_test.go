package jsonl

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellrag/internal/domain"
)

func TestEncodeChunkLines(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []domain.Segment{
		{Feature: "A01", PageStart: 2, PageEnd: 3, Content: "Jakość powietrza <PM2.5> & więcej"},
		{Feature: "B02", PageStart: 4, PageEnd: 4, Content: "B02 other text"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"feature":"A01","page_start":2,"page_end":3,"content":"Jakość powietrza <PM2.5> & więcej"}`, lines[0])
	assert.Equal(t, `{"feature":"B02","page_start":4,"page_end":4,"content":"B02 other text"}`, lines[1])
}

func TestEmbeddingFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []domain.EmbeddedRecord{{ID: "A01_0", Content: "c", Metadata: "A01 pages 2-3", ContentVector: []float32{0.5, -1}}}))

	assert.Equal(t, `{"id":"A01_0","content":"c","metadata":"A01 pages 2-3","content_vector":[0.5,-1]}`+"\n", buf.String())
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	in := "{\"feature\":\"A01\",\"page_start\":1,\"page_end\":1,\"content\":\"x\"}\n\n{\"feature\":\"B02\",\"page_start\":2,\"page_end\":2,\"content\":\"y\"}\n"

	got, err := Decode[domain.Segment](strings.NewReader(in))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B02", got[1].Feature)
}

func TestDecodeReportsBadLine(t *testing.T) {
	_, err := Decode[domain.Segment](strings.NewReader("{\"feature\":\"A01\"}\n{oops\n"))

	assert.ErrorContains(t, err, "record 1")
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "embeddings.jsonl")
	want := []domain.EmbeddedRecord{
		{ID: "A01_0", Content: strings.Repeat("long page text ", 10000), Metadata: "A01 pages 2-3", ContentVector: []float32{0.1, 0.2}},
		{ID: "A01_1", Content: "again", Metadata: "A01 pages 9-9", ContentVector: []float32{0.3, 0.4}},
	}

	require.NoError(t, WriteFile(path, want))
	got, err := ReadFile[domain.EmbeddedRecord](path)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile[domain.Segment](filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}
