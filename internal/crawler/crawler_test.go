package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docfill/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func rels(t *testing.T, root string, files []File) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestCrawler_Scan(t *testing.T) {
	root := tree(t, map[string]string{
		"main.go":                 "package main\n",
		"pkg/util.py":             "def f():\n    pass\n",
		"pkg/util.py.bak":         "def f():\n    pass\n",
		"web/app.ts":              "export {}\n",
		"web/node_modules/x.js":   "1\n",
		"vendor/dep/dep.go":       "package dep\n",
		"README.md":               "# readme\n",
		"build/gen.go":            "package gen\n",
		".gitignore":              "build/\n*.gen.py\n",
		"pkg/models.gen.py":       "x = 1\n",
		"pkg/__pycache__/util.py": "",
	})

	files, err := NewCrawler(extractor.NewExtractor()).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.py", "web/app.ts"}, rels(t, root, files))
	assert.Equal(t, "python", files[1].Language)
	assert.Equal(t, int64(len("def f():\n    pass\n")), files[1].Size)
}

func TestCrawler_Options(t *testing.T) {
	root := tree(t, map[string]string{
		"a.go":          "package a\n",
		"src/b.py":      "x = 1\n",
		"src/c.py":      "x = 2\n",
		"src/c_test.py": "x = 3\n",
	})
	ext := extractor.NewExtractor()
	ctx := context.Background()

	t.Run("Languages", func(t *testing.T) {
		files, err := NewCrawler(ext, WithLanguages("go")).Scan(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go"}, rels(t, root, files))
	})

	t.Run("Include and exclude patterns", func(t *testing.T) {
		files, err := NewCrawler(ext, WithInclude("src/"), WithExclude("*_test.py")).Scan(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/b.py", "src/c.py"}, rels(t, root, files))
	})

	t.Run("Single file root", func(t *testing.T) {
		files, err := NewCrawler(ext).Scan(ctx, filepath.Join(root, "a.go"))
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "go", files[0].Language)
	})

	t.Run("Missing root", func(t *testing.T) {
		_, err := NewCrawler(ext).Scan(ctx, filepath.Join(root, "nope"))
		assert.Error(t, err)
	})
}

func TestFilterChanged(t *testing.T) {
	root := "/repo"
	files := []File{
		{Path: "/repo/a.go"},
		{Path: "/repo/pkg/b.py"},
		{Path: "/repo/pkg/c.py"},
	}
	out := FilterChanged(root, files, []string{"pkg/b.py", "a.go", "gone.go"})
	assert.Equal(t, []File{{Path: "/repo/a.go"}, {Path: "/repo/pkg/b.py"}}, out)
}
