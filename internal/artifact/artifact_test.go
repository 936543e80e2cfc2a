package artifact

import (
	"testing"
	"time"

	"docfill/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AtMostOnePending(t *testing.T) {
	ref := Ref{Path: "m.py", Symbol: "add", Kind: extractor.KindFunction}
	var s Set

	s.Put(Artifact{Ref: ref, Text: "first", Status: StatusPending})
	s.Put(Artifact{Ref: ref, Text: "second", Status: StatusPending})
	require.Equal(t, 1, s.Len())

	got, ok := s.Get(ref)
	require.True(t, ok)
	assert.Equal(t, "second", got.Text)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.True(t, s.SetStatus(ref, StatusApplied, now))
	_, ok = s.Get(ref)
	assert.False(t, ok, "applied artifacts are history")

	s.Put(Artifact{Ref: ref, Text: "third", Status: StatusPending})
	assert.Equal(t, 2, s.Len())

	applied := s.Filter(StatusApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, "second", applied[0].Text)
	require.NotNil(t, applied[0].AppliedAt)
	assert.Equal(t, now, *applied[0].AppliedAt)
	assert.Equal(t, map[Status]int{StatusApplied: 1, StatusPending: 1}, CountByStatus(s.All()))
}

func TestArtifact_Empty(t *testing.T) {
	assert.True(t, Artifact{Text: " \n\t"}.Empty())
	assert.False(t, Artifact{Text: "// x"}.Empty())
}

func TestSortByRef(t *testing.T) {
	items := []Artifact{
		{Ref: Ref{Path: "b.go", Symbol: "A"}},
		{Ref: Ref{Path: "a.go", Symbol: "Z"}},
		{Ref: Ref{Path: "a.go", Symbol: "B"}},
	}
	SortByRef(items)
	assert.Equal(t, "a.go:B", items[0].Ref.Path+":"+items[0].Ref.Symbol)
	assert.Equal(t, "b.go", items[2].Ref.Path)
}
