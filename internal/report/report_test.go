package report

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	err := Wrap(CategoryIO, "pkg/a.go", "Run", errors.New("boom"), "failed to write")
	assert.Equal(t, "io_error pkg/a.go:Run: failed to write: boom", err.Error())
	assert.Equal(t, CategoryIO, CategoryOf(fmt.Errorf("outer: %w", err)))
}

func TestWrap_Severity(t *testing.T) {
	t.Run("permission denied is critical", func(t *testing.T) {
		err := Wrap(CategoryIO, "a.go", "", fmt.Errorf("open: %w", os.ErrPermission), "failed to read")
		assert.Equal(t, SeverityCritical, err.Severity)
		assert.True(t, IsCritical(err))
	})

	t.Run("validation is a warning", func(t *testing.T) {
		err := Wrap(CategoryValidation, "a.go", "f", errors.New("x"), "line out of range")
		assert.Equal(t, SeverityWarning, err.Severity)
	})

	t.Run("critical propagates through wrapping", func(t *testing.T) {
		inner := Newf(CategoryIO, "a.go", "", "backup failed").Critical()
		outer := Wrap(CategoryIO, "a.go", "", inner, "apply failed")
		assert.Equal(t, SeverityCritical, outer.Severity)
	})
}

func TestPolicy_ShouldAbort(t *testing.T) {
	critical := Newf(CategoryIO, "a.go", "", "no space").Critical()
	plain := Newf(CategoryParse, "a.go", "", "bad syntax")

	assert.False(t, Policy{}.ShouldAbort(critical))
	assert.True(t, Policy{Strict: true}.ShouldAbort(critical))
	assert.False(t, Policy{Strict: true}.ShouldAbort(plain))
	assert.False(t, Policy{Strict: true}.ShouldAbort(nil))
}

func TestLog_Summary(t *testing.T) {
	log := NewLog()
	log.Record(Newf(CategoryParse, "a.py", "", "unexpected token"), CategoryParse)
	log.Record(Newf(CategoryParse, "b.py", "", "unexpected token"), CategoryParse)
	log.Record(Newf(CategoryIO, "c.go", "", "disk full").Critical(), CategoryIO)
	log.Record(errors.New("plain failure"), CategoryOracle)

	s := log.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Critical)
	require.Len(t, s.Categories, 3)

	assert.Equal(t, CategoryParse, s.Categories[0].Category)
	assert.Equal(t, 2, s.Categories[0].Count)
	assert.NotEmpty(t, s.Categories[0].Hint)
	assert.Equal(t, CategoryOracle, s.Categories[1].Category)
	assert.Equal(t, CategoryIO, s.Categories[2].Category)

	issues := log.Issues()
	assert.Equal(t, "c.go", issues[2].Path)
	assert.Equal(t, "plain failure", issues[3].Message)
}
