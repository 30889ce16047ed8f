package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "leschi market", b: "leschi market", want: 1.0},
		{name: "disjoint", a: "harra hummus", b: "leschi market", want: 0.0},
		{name: "partial overlap", a: "met market sand point", b: "met mkt sand point", want: 0.6},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "", b: "met market", want: 0.0},
		{name: "repeats count once", a: "met met market", b: "market met", want: 1.0},
		{name: "reordered tokens", a: "falafel mamouns", b: "mamouns falafel", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestEditSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "leschi", b: "leschi", want: 1.0},
		{name: "single deletion", a: "met market sand point", b: "met mkt sand point", want: 1.0 - 3.0/21.0},
		{name: "transposition counts once", a: "lecshi", b: "leschi", want: 1.0 - 1.0/6.0},
		{name: "classic kitten sitting", a: "kitten", b: "sitting", want: 1.0 - 3.0/7.0},
		{name: "empty vs text", a: "", b: "abc", want: 0.0},
		{name: "both empty", a: "", b: "", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EditSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical is one", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("mamouns falafel", "mamouns falafel"))
	})

	t.Run("is the mean of both components", func(t *testing.T) {
		a, b := "met market sand point", "met mkt sand point"
		want := 0.5*TokenSetSimilarity(a, b) + 0.5*EditSimilarity(a, b)

		got := Similarity(a, b)
		assert.InDelta(t, want, got, 1e-9)
		assert.InDelta(t, 0.7286, got, 0.001)
	})

	t.Run("abbreviation clears the default threshold", func(t *testing.T) {
		got := Similarity("met mkt sand point", "met market sand point")
		assert.GreaterOrEqual(t, got, DefaultAcceptThreshold)
	})

	t.Run("shared single word does not", func(t *testing.T) {
		got := Similarity("leschi market", "met market sand point")
		assert.Less(t, got, DefaultAcceptThreshold)
	})
}
