package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPONumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "canonical form kept", raw: "PO-552", want: "PO-552"},
		{name: "bare po with number", raw: "PO 552", want: "PO-552"},
		{name: "po hash", raw: "PO # 779322", want: "PO-779322"},
		{name: "po hash no space", raw: "PO# 785153", want: "PO-785153"},
		{name: "po colon", raw: "PO: 12345", want: "PO-12345"},
		{name: "lowercase po", raw: "po-552", want: "PO-552"},
		{name: "alpha prefixed reference", raw: "MAMN-54127", want: "MAMN-54127"},
		{name: "po marker with alpha reference", raw: "PO # MAMN-54127", want: "MAMN-54127"},
		{name: "embedded in sentence", raw: "ship per PO-552 asap", want: "PO-552"},
		{name: "bare digits only", raw: "779322", want: ""},
		{name: "po marker without reference", raw: "PO #", want: ""},
		{name: "empty", raw: "", want: ""},
		{name: "no po at all", raw: "Leschi Market", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPONumber(tt.raw))
		})
	}
}

func TestExtractCustomerPO(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantPO   string
	}{
		{name: "name with po number", raw: "Crown - PO # 779322", wantName: "Crown", wantPO: "779322"},
		{name: "po no space after hash", raw: "Crown - PO# 785153", wantName: "Crown", wantPO: "785153"},
		{name: "po marker without number", raw: "Crown - PO #", wantName: "Crown", wantPO: ""},
		{name: "alpha po reference", raw: "PSFH - PO # MAMN-54127", wantName: "PSFH", wantPO: "MAMN-54127"},
		{name: "parenthetical name no number", raw: "PSFH (FROZEN) - PO#", wantName: "PSFH (FROZEN)", wantPO: ""},
		{name: "hash in name is not a po", raw: "Met #165 Crown Hill", wantName: "Met #165 Crown Hill", wantPO: ""},
		{name: "plain name", raw: "Leschi Market", wantName: "Leschi Market", wantPO: ""},
		{name: "name with ampersand", raw: "Cone & Steiner RD", wantName: "Cone & Steiner RD", wantPO: ""},
		{name: "whitespace trimmed", raw: "  Crown - PO # 779322  ", wantName: "Crown", wantPO: "779322"},
		{name: "empty", raw: "", wantName: "", wantPO: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotPO := ExtractCustomerPO(tt.raw)
			assert.Equal(t, tt.wantName, gotName)
			assert.Equal(t, tt.wantPO, gotPO)
		})
	}
}
