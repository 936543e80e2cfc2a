package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"docfill/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(symbols []Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Name)
	}
	return out
}

func byName(symbols []Symbol) map[string]Symbol {
	out := make(map[string]Symbol)
	for _, s := range Flatten(symbols) {
		out[s.Name] = s
	}
	return out
}

func TestExtractor_ExtractFile(t *testing.T) {
	testFile := filepath.Join("testdata", "sample.go")

	ext := NewExtractor()
	res, err := ext.ExtractFile(context.Background(), testFile)
	require.NoError(t, err)
	assert.Equal(t, "go", res.Language)
	assert.Empty(t, res.Errors)

	t.Run("Top-level order", func(t *testing.T) {
		assert.Equal(t, []string{"Base", "User", "Handler", "MyFunc", "MyFunction", "Detached", "Ping"}, names(res.Symbols))
	})

	units := byName(res.Symbols)

	t.Run("Types map to classes", func(t *testing.T) {
		user := units["User"]
		assert.Equal(t, KindClass, user.Kind)
		assert.True(t, user.HasDocumentation)
		assert.Equal(t, "// User is a complex struct.", user.ExistingDocumentation)
		assert.Equal(t, "type User struct", user.Signature)
		require.Len(t, user.Members, 1)
		assert.Equal(t, "MyMethod", user.Members[0].Name)
		assert.Equal(t, KindMethod, user.Members[0].Kind)
		assert.Equal(t, "User.MyMethod", user.Members[0].QualifiedName())

		assert.False(t, units["Handler"].HasDocumentation)
	})

	t.Run("Function details", func(t *testing.T) {
		fn := units["MyFunc"]
		assert.Equal(t, KindFunction, fn.Kind)
		assert.Equal(t, []Param{{Name: "a", TypeHint: "int"}, {Name: "b", TypeHint: "string"}}, fn.Parameters)
		assert.Equal(t, "bool", fn.ReturnTypeHint)
		assert.Equal(t, "func MyFunc(a int, b string) bool", fn.Signature)
		assert.Equal(t, Location{Start: 24, End: 27}, fn.Location)

		variadic := units["MyFunction"]
		require.Len(t, variadic.Parameters, 2)
		assert.Equal(t, "...int", variadic.Parameters[1].TypeHint)
		assert.False(t, variadic.HasDocumentation)
	})

	t.Run("Detached comment is not documentation", func(t *testing.T) {
		assert.False(t, units["Detached"].HasDocumentation)
		assert.Empty(t, units["Detached"].ExistingDocumentation)
	})

	t.Run("Methods of unknown receivers stay top-level", func(t *testing.T) {
		ping := units["Ping"]
		assert.Equal(t, KindMethod, ping.Kind)
		assert.Equal(t, "error", ping.ReturnTypeHint)
	})
}

func TestExtractor_Idempotent(t *testing.T) {
	ext := NewExtractor()
	src := []byte("def add(a, b):\n    return a + b\n\n\nclass K:\n    def m(self, x):\n        pass\n")

	first, err := ext.Extract(context.Background(), src, "m.py")
	require.NoError(t, err)
	second, err := ext.Extract(context.Background(), src, "m.py")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPythonExtractor(t *testing.T) {
	ext := NewExtractor()
	ctx := context.Background()

	t.Run("Undocumented function", func(t *testing.T) {
		res, err := ext.Extract(ctx, []byte("def add(a, b):\n    return a + b\n"), "math.py")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 1)

		add := res.Symbols[0]
		assert.Equal(t, KindFunction, add.Kind)
		assert.Equal(t, "add", add.Name)
		assert.Equal(t, "python", add.Language)
		assert.Equal(t, []Param{{Name: "a"}, {Name: "b"}}, add.Parameters)
		assert.False(t, add.HasDocumentation)
		assert.Equal(t, Location{Start: 1, End: 2}, add.Location)
		assert.Equal(t, 2, add.BodyLine)
		assert.Equal(t, 4, add.BodyColumn)
	})

	t.Run("Class with docstring and methods", func(t *testing.T) {
		src := `class Greeter(Base):
    """Greets people."""

    def __init__(self, name: str):
        self.name = name

    @staticmethod
    def shout(text, *args, **kwargs) -> str:
        """Shout text."""
        return text.upper()
`
		res, err := ext.Extract(ctx, []byte(src), "greet.py")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 1)

		cls := res.Symbols[0]
		assert.Equal(t, KindClass, cls.Kind)
		assert.Equal(t, `"""Greets people."""`, cls.ExistingDocumentation)
		assert.Equal(t, "class Greeter(Base)", cls.Signature)
		require.Len(t, cls.Members, 2)

		init := cls.Members[0]
		assert.Equal(t, KindMethod, init.Kind)
		assert.Equal(t, []Param{{Name: "name", TypeHint: "str"}}, init.Parameters)
		assert.False(t, init.HasDocumentation)
		assert.Equal(t, "    ", init.Indent)
		assert.Equal(t, "Greeter", init.Owner)
		assert.Equal(t, "Greeter.__init__", init.QualifiedName())

		shout := cls.Members[1]
		assert.Equal(t, "shout", shout.Name)
		assert.Equal(t, []string{"text", "*args", "**kwargs"}, names(paramSymbols(shout.Parameters)))
		assert.Equal(t, "str", shout.ReturnTypeHint)
		assert.True(t, shout.HasDocumentation)
	})

	t.Run("Nested functions are not symbols", func(t *testing.T) {
		src := "def outer():\n    def inner():\n        pass\n    return inner\n"
		res, err := ext.Extract(ctx, []byte(src), "nested.py")
		require.NoError(t, err)
		assert.Equal(t, []string{"outer"}, names(res.Symbols))
	})

	t.Run("Definitions under module-level conditionals", func(t *testing.T) {
		src := "import os\n\nif os.name == 'posix':\n    def posix_only():\n        pass\n"
		res, err := ext.Extract(ctx, []byte(src), "cond.py")
		require.NoError(t, err)
		assert.Equal(t, []string{"posix_only"}, names(res.Symbols))
	})
}

func paramSymbols(params []Param) []Symbol {
	out := make([]Symbol, 0, len(params))
	for _, p := range params {
		out = append(out, Symbol{Name: p.Name})
	}
	return out
}

func TestGoExtractor_DocAssociation(t *testing.T) {
	ext := NewExtractor()
	ctx := context.Background()

	t.Run("Trailing comment belongs to the previous line", func(t *testing.T) {
		src := "package p\n\nvar x = 1 // trailing\nfunc F() {}\n"
		res, err := ext.Extract(ctx, []byte(src), "p.go")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 1)
		assert.False(t, res.Symbols[0].HasDocumentation)
	})

	t.Run("One blank line is tolerated", func(t *testing.T) {
		src := "package p\n\n// F does things.\n// Twice.\n\nfunc F() {}\n"
		res, err := ext.Extract(ctx, []byte(src), "p.go")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 1)
		assert.Equal(t, "// F does things.\n// Twice.", res.Symbols[0].ExistingDocumentation)
	})

	t.Run("Grouped type specs", func(t *testing.T) {
		src := "package p\n\ntype (\n\t// A is a.\n\tA int\n\tB string\n)\n"
		res, err := ext.Extract(ctx, []byte(src), "p.go")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 2)
		assert.True(t, res.Symbols[0].HasDocumentation)
		assert.Equal(t, "\t", res.Symbols[0].Indent)
		assert.False(t, res.Symbols[1].HasDocumentation)
	})
}

func TestScriptExtractor(t *testing.T) {
	ext := NewExtractor()
	ctx := context.Background()

	t.Run("JavaScript", func(t *testing.T) {
		src := `/** Adds numbers. */
export function add(a, b = 1, ...rest) {
  return a + b;
}
// plain comment
const double = (x) => x * 2;
class Calc {
  /** Sums. */
  sum(a) { return a; }

  reset() {}
}
`
		res, err := ext.Extract(ctx, []byte(src), "calc.js")
		require.NoError(t, err)
		assert.Equal(t, "javascript", res.Language)
		assert.Equal(t, []string{"add", "double", "Calc"}, names(res.Symbols))

		units := byName(res.Symbols)
		add := units["add"]
		assert.Equal(t, "/** Adds numbers. */", add.ExistingDocumentation)
		assert.Equal(t, Location{Start: 2, End: 4}, add.Location)
		assert.Equal(t, []string{"a", "b", "...rest"}, names(paramSymbols(add.Parameters)))

		assert.False(t, units["double"].HasDocumentation)
		assert.Equal(t, KindFunction, units["double"].Kind)

		calc := units["Calc"]
		require.Len(t, calc.Members, 2)
		assert.True(t, calc.Members[0].HasDocumentation)
		assert.Equal(t, "  ", calc.Members[0].Indent)
		assert.False(t, calc.Members[1].HasDocumentation)
		assert.Equal(t, "Calc", calc.Members[1].Owner)
	})

	t.Run("TypeScript", func(t *testing.T) {
		src := "function greet(name: string, age?: number): string {\n  return name;\n}\n"
		res, err := ext.Extract(ctx, []byte(src), "greet.ts")
		require.NoError(t, err)
		require.Len(t, res.Symbols, 1)

		greet := res.Symbols[0]
		assert.Equal(t, "typescript", greet.Language)
		assert.Equal(t, []Param{{Name: "name", TypeHint: "string"}, {Name: "age?", TypeHint: "number"}}, greet.Parameters)
		assert.Equal(t, "string", greet.ReturnTypeHint)
	})
}

func TestExtractor_Errors(t *testing.T) {
	ctx := context.Background()
	broken := []byte("def broken(:\n    pass\n")

	t.Run("Malformed file is a parse error", func(t *testing.T) {
		_, err := NewExtractor().Extract(ctx, broken, "broken.py")
		require.Error(t, err)
		assert.Equal(t, report.CategoryParse, report.CategoryOf(err))
	})

	t.Run("Skip errors yields a diagnostic", func(t *testing.T) {
		res, err := NewExtractor(WithSkipErrors(true)).Extract(ctx, broken, "broken.py")
		require.NoError(t, err)
		assert.Empty(t, res.Symbols)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "broken.py")
	})

	t.Run("Unsupported extension", func(t *testing.T) {
		_, err := NewExtractor().Extract(ctx, []byte("puts 1"), "a.rb")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("Missing file is an io error", func(t *testing.T) {
		_, err := NewExtractor().ExtractFile(ctx, filepath.Join("testdata", "missing.go"))
		assert.Equal(t, report.CategoryIO, report.CategoryOf(err))
	})
}

func TestGroupByLanguage(t *testing.T) {
	grouped := GroupByLanguage(map[string][]Symbol{
		"b.py": {{Name: "b", Language: "python"}},
		"a.py": {{Name: "a", Language: "python"}},
		"c.go": {{Name: "c", Language: "go"}},
	})
	assert.Equal(t, []string{"a", "b"}, names(grouped["python"]))
	assert.Equal(t, []string{"c"}, names(grouped["go"]))
}

func TestBuildStableSymbolID(t *testing.T) {
	sym := Symbol{Kind: KindFunction, Name: "add", Language: "python", Signature: "def add(a, b)", Location: Location{Start: 1, End: 2}}
	moved := sym
	moved.Location = Location{Start: 5, End: 6}

	id := BuildStableSymbolID("m.py", sym)
	assert.Equal(t, id, BuildStableSymbolID("m.py", moved))
	assert.Contains(t, id, "python/m.py:function:add:")

	changed := sym
	changed.Signature = "def add(a, b, c)"
	assert.NotEqual(t, id, BuildStableSymbolID("m.py", changed))

	method := Symbol{Kind: KindMethod, Name: "__init__", Owner: "A", Language: "python", Signature: "def __init__(self)"}
	other := method
	other.Owner = "B"
	assert.Contains(t, BuildStableSymbolID("m.py", method), "python/m.py:method:A.__init__:")
	assert.NotEqual(t, BuildStableSymbolID("m.py", method), BuildStableSymbolID("m.py", other))
}
