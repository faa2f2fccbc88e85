package workflow

import (
	"fmt"
	"strings"
)

// BindVariables resolves ${name} placeholders in input against vars using a
// single-pass literal substring replace. There is no escaping and no nested
// path support (`${step_step1}` only, not `${step_step1.field}`). A
// placeholder whose name is missing from vars passes through unchanged; this
// is a deliberate fallback, not an error, because a step may legitimately
// read a variable whose producer was skipped.
func BindVariables(input string, vars map[string]any) string {
	if !strings.Contains(input, "${") { // fast path: no placeholders
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); {
		open := strings.Index(input[i:], "${")
		if open < 0 {
			b.WriteString(input[i:])
			break
		}
		start := i + open
		b.WriteString(input[i:start])

		closing := strings.Index(input[start:], "}")
		if closing < 0 { // unterminated placeholder passes through
			b.WriteString(input[start:])
			break
		}
		end := start + closing

		name := input[start+2 : end]
		if value, ok := vars[name]; ok {
			b.WriteString(variableString(value))
		} else {
			b.WriteString(input[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// variableString renders a variable value for substitution. Step outputs are
// strings already; anything else gets the default formatting.
func variableString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
