package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		summary string
		wantErr bool
	}{
		{name: "plain", input: `{"summary":"ok"}`, summary: "ok"},
		{name: "code fence", input: "```json\n{\"summary\":\"fenced\"}\n```", summary: "fenced"},
		{name: "prose around", input: `Here you go: {"summary":"prose"} Hope this helps.`, summary: "prose"},
		{name: "no object", input: "no json here", wantErr: true},
		{name: "broken object", input: `{"summary": }`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out summaryPayload
			err := decodeJSON(tt.input, &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.summary, out.Summary)
		})
	}
}

func TestValidateRFP(t *testing.T) {
	budget := 10.0
	assert.NoError(t, validateRFP(&RFPStructured{Items: []RFPItem{{Name: "Desk", Qty: 1}}, Budget: &budget}))
	assert.Error(t, validateRFP(&RFPStructured{}))
	assert.Error(t, validateRFP(&RFPStructured{Items: []RFPItem{{Name: " ", Qty: 1}}}))
	assert.Error(t, validateRFP(&RFPStructured{Items: []RFPItem{{Name: "Desk", Qty: -1}}}))
}
