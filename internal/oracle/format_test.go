package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		language string
		input    string
		want     string
	}{
		{"empty stays empty", "python", "   \n", ""},
		{"python one line", "python", "Add two numbers.", `"""Add two numbers."""`},
		{"python multi line", "python", "Add two numbers.\n\nArgs:\n    a: first", "\"\"\"Add two numbers.\n\nArgs:\n    a: first\n\"\"\""},
		{"python strips echoed quotes", "python", "\"\"\"Add two numbers.\"\"\"", `"""Add two numbers."""`},
		{"go lines", "go", "Run starts the loop.\n\nIt blocks.", "// Run starts the loop.\n//\n// It blocks."},
		{"go strips echoed markers", "go", "// Run starts the loop.", "// Run starts the loop."},
		{"jsdoc one line", "javascript", "Adds numbers.", "/** Adds numbers. */"},
		{"jsdoc block", "typescript", "Adds numbers.\n@param a - first", "/**\n * Adds numbers.\n * @param a - first\n */"},
		{"jsdoc strips echoed block", "javascript", "/**\n * Adds numbers.\n * @returns {number}\n */", "/**\n * Adds numbers.\n * @returns {number}\n */"},
		{"code fences are removed", "go", "```go\nRun starts the loop.\n```", "// Run starts the loop."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.language, tt.input))
		})
	}
}
