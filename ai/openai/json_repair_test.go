package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", `{"spans":[{"text":"flood","confidence":0.9}]}`, `{"spans":[{"text":"flood","confidence":0.9}]}`},
		{"missing opening quote", `{spans":[{text":"flood", confidence":1}]}`, `{"spans":[{"text":"flood", "confidence":1}]}`},
		{"bare keys", `{spans: [{text: "flood"}]}`, `{"spans": [{"text": "flood"}]}`},
		{"trailing commas", `{"spans":[{"text":"flood",},]}`, `{"spans":[{"text":"flood"}]}`},
		{"string contents untouched", `{"spans":[{"text":"rain, floods: severe,}"}]}`, `{"spans":[{"text":"rain, floods: severe,}"}]}`},
		{"escaped quote in string", `{"spans":[{"text":"the \"flood\", then"}]}`, `{"spans":[{"text":"the \"flood\", then"}]}`},
		{"literals in arrays", `[true, false, null]`, `[true, false, null]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}
}

func TestCleanResponse(t *testing.T) {
	got := cleanResponse("```json\n{spans: []}\n```")
	assert.Equal(t, `{"spans": []}`, got)
}
