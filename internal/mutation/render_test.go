package mutation

import (
	"testing"

	"docfill/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		edits []Edit
		want  string
	}{
		{
			name:  "go function",
			src:   "package p\n\nfunc F() {}\n",
			edits: []Edit{{Symbol: "F", Language: "go", Line: 3, Text: "// F does things."}},
			want:  "package p\n\n// F does things.\nfunc F() {}\n",
		},
		{
			name: "indent of the target line",
			src:  "class Calc {\n  sum(a) { return a; }\n}\n",
			edits: []Edit{{Symbol: "sum", Language: "javascript", Line: 2,
				Text: "/**\n * Sums.\n */"}},
			want: "class Calc {\n  /**\n   * Sums.\n   */\n  sum(a) { return a; }\n}\n",
		},
		{
			name: "python docstring",
			src:  "def add(a, b):\n    return a + b\n",
			edits: []Edit{{Symbol: "add", Language: "python", Line: 1, BodyLine: 2, BodyColumn: 4,
				Text: `"""Add two numbers."""`}},
			want: "def add(a, b):\n    \"\"\"Add two numbers.\"\"\"\n    return a + b\n",
		},
		{
			name: "python multi-line docstring keeps blank lines empty",
			src:  "class K:\n    def m(self):\n        pass\n",
			edits: []Edit{{Symbol: "m", Language: "python", Line: 2, BodyLine: 3, BodyColumn: 8,
				Text: "\"\"\"Do it.\n\nReally.\n\"\"\""}},
			want: "class K:\n    def m(self):\n        \"\"\"Do it.\n\n        Really.\n        \"\"\"\n        pass\n",
		},
		{
			name: "python body on the header line",
			src:  "def f(): return 1\n",
			edits: []Edit{{Symbol: "f", Language: "python", Line: 1, BodyLine: 1, BodyColumn: 9,
				Text: `"""Return one."""`}},
			want: "def f():\n    \"\"\"Return one.\"\"\"\n    return 1\n",
		},
		{
			name: "descending order keeps anchors valid",
			src:  "package p\n\nfunc A() {}\n\nfunc B() {}\n",
			edits: []Edit{
				{Symbol: "A", Language: "go", Line: 3, Text: "// A is a."},
				{Symbol: "B", Language: "go", Line: 5, Text: "// B is b.\n// Twice."},
			},
			want: "package p\n\n// A is a.\nfunc A() {}\n\n// B is b.\n// Twice.\nfunc B() {}\n",
		},
		{
			name:  "crlf is preserved",
			src:   "package p\r\n\r\nfunc F() {}\r\n",
			edits: []Edit{{Symbol: "F", Language: "go", Line: 3, Text: "// F."}},
			want:  "package p\r\n\r\n// F.\r\nfunc F() {}\r\n",
		},
		{
			name: "override replaces a line comment run",
			src:  "package p\n\n// old\n// doc\n\nfunc F() {}\n",
			edits: []Edit{{Symbol: "F", Language: "go", Line: 6, Text: "// F is new.",
				HasExisting: true, Override: true}},
			want: "package p\n\n// F is new.\n\nfunc F() {}\n",
		},
		{
			name: "override replaces a jsdoc block",
			src:  "/**\n * Old.\n */\nfunction f() {}\n",
			edits: []Edit{{Symbol: "f", Language: "javascript", Line: 4, Text: "/** New. */",
				HasExisting: true, Override: true}},
			want: "/** New. */\nfunction f() {}\n",
		},
		{
			name: "override replaces a python docstring",
			src:  "def f():\n    \"\"\"Old.\n\n    More.\n    \"\"\"\n    return 1\n",
			edits: []Edit{{Symbol: "f", Language: "python", Line: 1, BodyLine: 2, BodyColumn: 4,
				Text: `"""New."""`, HasExisting: true, Override: true}},
			want: "def f():\n    \"\"\"New.\"\"\"\n    return 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcomes := Render("f", []byte(tt.src), tt.edits)
			for _, o := range outcomes {
				require.NoError(t, o.Err)
				assert.True(t, o.Applied)
			}
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRender_Validation(t *testing.T) {
	src := "package p\n\n// F exists.\nfunc F() {}\n"

	tests := []struct {
		name string
		edit Edit
		msg  string
	}{
		{"existing documentation", Edit{Symbol: "F", Language: "go", Line: 4, Text: "// F.", HasExisting: true}, "documentation already exists"},
		{"line out of range", Edit{Symbol: "G", Language: "go", Line: 9, Text: "// G."}, "out of range"},
		{"empty text", Edit{Symbol: "F", Language: "go", Line: 4, Text: "  "}, "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcomes := Render("f.go", []byte(src), []Edit{tt.edit})
			require.Len(t, outcomes, 1)
			assert.False(t, outcomes[0].Applied)
			assert.Equal(t, report.CategoryValidation, report.CategoryOf(outcomes[0].Err))
			assert.Contains(t, outcomes[0].Err.Error(), tt.msg)
			assert.Equal(t, src, string(got))
		})
	}
}

func TestRender_ClassAndOneLineFirstMethod(t *testing.T) {
	src := "class A:\n    def m(self): return 1\n"
	got, outcomes := Render("a.py", []byte(src), []Edit{
		{Symbol: "A", Language: "python", Line: 1, BodyLine: 2, BodyColumn: 4, Text: `"""Class A."""`},
		{Symbol: "A.m", Language: "python", Line: 2, BodyLine: 2, BodyColumn: 17, Text: `"""Return one."""`},
	})
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.True(t, o.Applied)
	}
	want := "class A:\n" +
		"    \"\"\"Class A.\"\"\"\n" +
		"    def m(self):\n" +
		"        \"\"\"Return one.\"\"\"\n" +
		"        return 1\n"
	assert.Equal(t, want, string(got))
}

func TestRender_DuplicateAnchor(t *testing.T) {
	src := "package p\n\nfunc F() {}\n"
	got, outcomes := Render("f.go", []byte(src), []Edit{
		{Symbol: "F", Language: "go", Line: 3, Text: "// first"},
		{Symbol: "F", Language: "go", Line: 3, Text: "// second"},
	})
	assert.True(t, outcomes[0].Applied)
	assert.False(t, outcomes[1].Applied)
	assert.Equal(t, "package p\n\n// first\nfunc F() {}\n", string(got))
}
