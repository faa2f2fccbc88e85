package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindVariables(t *testing.T) {
	tests := []struct {
		name  string
		input string
		vars  map[string]any
		want  string
	}{
		{
			name:  "no placeholders",
			input: "plain text",
			vars:  map[string]any{"x": "y"},
			want:  "plain text",
		},
		{
			name:  "single placeholder",
			input: "summarize ${input}",
			vars:  map[string]any{"input": "the report"},
			want:  "summarize the report",
		},
		{
			name:  "multiple placeholders",
			input: "${greeting}, ${name}!",
			vars:  map[string]any{"greeting": "hello", "name": "world"},
			want:  "hello, world!",
		},
		{
			name:  "step output variable",
			input: "review this: ${step_draft}",
			vars:  map[string]any{"step_draft": "first draft text"},
			want:  "review this: first draft text",
		},
		{
			name:  "missing variable passes through",
			input: "use ${unknown} here",
			vars:  map[string]any{},
			want:  "use ${unknown} here",
		},
		{
			name:  "unterminated placeholder passes through",
			input: "broken ${name",
			vars:  map[string]any{"name": "value"},
			want:  "broken ${name",
		},
		{
			name:  "non-string value formatted",
			input: "count is ${count}",
			vars:  map[string]any{"count": 42},
			want:  "count is 42",
		},
		{
			name:  "no recursive substitution",
			input: "${outer}",
			vars:  map[string]any{"outer": "${inner}", "inner": "nope"},
			want:  "${inner}",
		},
		{
			name:  "adjacent placeholders",
			input: "${a}${b}",
			vars:  map[string]any{"a": "1", "b": "2"},
			want:  "12",
		},
		{
			name:  "empty input",
			input: "",
			vars:  map[string]any{"x": "y"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BindVariables(tt.input, tt.vars))
		})
	}
}
