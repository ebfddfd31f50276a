package naru

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeOf(t *testing.T) {
	tests := []struct {
		raw  string
		want Shape
	}{
		{"", ShapeAbsent},
		{"null", ShapeAbsent},
		{"{}", ShapeAbsent},
		{`""`, ShapeAbsent},
		{"0", ShapeAbsent},
		{`{"doc":{"bookname":"A"}}`, ShapeSingle},
		{"[]", ShapeArray},
		{` [{"doc":{}}]`, ShapeArray},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ShapeOf(json.RawMessage(tt.raw)))
		})
	}
}

func TestNormalizeCardinality(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"absent", "", 0},
		{"null", "null", 0},
		{"empty array", "[]", 0},
		{"single wrapped", `{"doc":{"bookname":"A"}}`, 1},
		{"single bare", `{"bookname":"A"}`, 1},
		{"many wrapped", `[{"doc":{"bookname":"A"}},{"doc":{"bookname":"B"}},{"doc":{"bookname":"C"}}]`, 3},
		{"many bare", `[{"bookname":"A"},{"bookname":"B"}]`, 2},
		{"wrapper holding array", `{"doc":[{"bookname":"A"},{"bookname":"B"}]}`, 2},
		{"nulls inside array skipped", `[null,{"doc":{"bookname":"A"}}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Normalize(json.RawMessage(tt.raw), "doc"), tt.want)
		})
	}
}

func TestNormalizeUnwrapsAndKeepsOrder(t *testing.T) {
	raw := json.RawMessage(`[{"doc":{"bookname":"A"}},{"doc":{"bookname":"B"}}]`)
	docs, err := DecodeRecords[Doc](raw, "doc")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0].Bookname.String())
	assert.Equal(t, "B", docs[1].Bookname.String())
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`{"lib":{"libCode":"1","libName":"다사도서관"}}`,
		`[{"lib":{"libCode":"1"}},{"lib":{"libCode":"2"}}]`,
		`null`,
	}
	for _, in := range inputs {
		first := Normalize(json.RawMessage(in), "lib")

		encoded, err := json.Marshal(first)
		require.NoError(t, err)
		second := Normalize(encoded, "lib")

		require.Len(t, second, len(first))
		for i := range first {
			assert.JSONEq(t, string(first[i]), string(second[i]))
		}
	}
}

func TestFlexValues(t *testing.T) {
	var doc Doc
	require.NoError(t, json.Unmarshal([]byte(`{"loan_count":"1,204","ranking":3,"isbn13":9788936434120,"vol":null}`), &doc))
	assert.Equal(t, 1204, doc.Loans())
	assert.Equal(t, 3, doc.Ranking.Int())
	assert.Equal(t, "9788936434120", doc.ISBN13.String())
	assert.Equal(t, "", doc.Vol.String())
	assert.Equal(t, 0, FlexString("n/a").Int())

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"response":{"numFound":"250","resultNum":100}}`), &env))
	assert.Equal(t, 250, env.total())
}
