package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "clean object untouched",
			raw:  `{"ratings":{"relevance":8}}`,
			want: `{"ratings":{"relevance":8}}`,
		},
		{
			name: "markdown fences stripped",
			raw:  "```json\n{\"ratings\":{\"relevance\":8}}\n```",
			want: `{"ratings":{"relevance":8}}`,
		},
		{
			name: "surrounding prose trimmed",
			raw:  `Here is my assessment: {"ratings":{"relevance":8}} I hope this helps!`,
			want: `{"ratings":{"relevance":8}}`,
		},
		{
			name: "trailing comma removed",
			raw:  `{"ratings":{"relevance":8,},}`,
			want: `{"ratings":{"relevance":8}}`,
		},
		{
			name: "trailing comma in array removed",
			raw:  `{"tags":["a","b",]}`,
			want: `{"tags":["a","b"]}`,
		},
		{
			name: "no object returns trimmed input",
			raw:  "  I cannot rate this article.  ",
			want: "I cannot rate this article.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.raw))
		})
	}
}

func TestRepairJSON_OutputStaysStrictlyParseable(t *testing.T) {
	repaired := repairJSON("```json\n{\"ratings\":{\"relevance\":8,\"novelty\":5,},}\n```")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &decoded))
	assert.Contains(t, decoded, "ratings")
}
