package consult

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"rating": 80}`,
			want:  `{"rating": 80}`,
		},
		{
			name:  "prose around object",
			input: "Here is my analysis:\n{\"rating\": 80}\nLet me know if you need more.",
			want:  `{"rating": 80}`,
		},
		{
			name:  "code fence",
			input: "```json\n{\"rating\": 80, \"entry\": {\"price\": \"100\"}}\n```",
			want:  `{"rating": 80, "entry": {"price": "100"}}`,
		},
		{
			name:  "braces inside strings",
			input: `{"reasoning": "pattern {head} and \"quoted\" text", "rating": 70}`,
			want:  `{"reasoning": "pattern {head} and \"quoted\" text", "rating": 70}`,
		},
		{
			name:  "nested objects",
			input: `{"a": {"b": {"c": 1}}}`,
			want:  `{"a": {"b": {"c": 1}}}`,
		},
		{
			name:    "no object",
			input:   "I cannot analyze this symbol.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"rating": 80`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateHoldModeAction(t *testing.T) {
	base := rawResult{Reasoning: "solid setup"}

	holdOK := base
	holdOK.Action = "hold"
	sellOK := base
	sellOK.Action = "sell"
	bad := base
	bad.Action = "buy"

	assert.NoError(t, validate(contracts.ModeHold, holdOK))
	assert.NoError(t, validate(contracts.ModeHold, sellOK))
	assert.Error(t, validate(contracts.ModeHold, bad))

	// Buy mode does not constrain the action field.
	assert.NoError(t, validate(contracts.ModeBuy, bad))

	missing := rawResult{}
	assert.Error(t, validate(contracts.ModeBuy, missing))
}

func TestClamping(t *testing.T) {
	assert.Equal(t, 0.0, clampRating(-5))
	assert.Equal(t, 100.0, clampRating(150))
	assert.Equal(t, 72.5, clampRating(72.5))

	assert.Equal(t, 1, clampConfidence(0))
	assert.Equal(t, 10, clampConfidence(42))
	assert.Equal(t, 7, clampConfidence(7))
}
