package artifact

import (
	"fmt"
	"sort"
	"time"

	"docfill/internal/extractor"
)

// Status is the lifecycle state of a generated documentation artifact.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusApplied  Status = "applied"
)

// Ref identifies the symbol an artifact documents. Refs are stable lookup
// keys, never pointers into parsed symbol trees.
type Ref struct {
	Path   string         `json:"path"`
	Symbol string         `json:"symbol"`
	Kind   extractor.Kind `json:"kind"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Path, r.Kind, r.Symbol)
}

// RefFor builds the Ref of a symbol in path. Members are keyed by their
// qualified name.
func RefFor(path string, sym extractor.Symbol) Ref {
	return Ref{Path: path, Symbol: sym.QualifiedName(), Kind: sym.Kind}
}

// Artifact is documentation text generated for one symbol.
type Artifact struct {
	Ref         Ref        `json:"ref"`
	Text        string     `json:"text"`
	Status      Status     `json:"status"`
	Style       string     `json:"style,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// Empty reports whether the artifact carries no usable text.
func (a Artifact) Empty() bool {
	for _, r := range a.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Set holds the artifacts of one file. At most one non-applied artifact
// exists per Ref; applied artifacts are kept as history.
type Set struct {
	items []Artifact
}

// Put stores a, replacing any non-applied artifact with the same Ref.
func (s *Set) Put(a Artifact) {
	for i, existing := range s.items {
		if existing.Ref == a.Ref && existing.Status != StatusApplied {
			s.items[i] = a
			return
		}
	}
	s.items = append(s.items, a)
}

// Get returns the current (non-applied) artifact for ref.
func (s *Set) Get(ref Ref) (Artifact, bool) {
	for _, a := range s.items {
		if a.Ref == ref && a.Status != StatusApplied {
			return a, true
		}
	}
	return Artifact{}, false
}

// SetStatus changes the status of the current artifact for ref.
func (s *Set) SetStatus(ref Ref, status Status, now time.Time) bool {
	for i, a := range s.items {
		if a.Ref == ref && a.Status != StatusApplied {
			s.items[i].Status = status
			if status == StatusApplied {
				s.items[i].AppliedAt = &now
			}
			return true
		}
	}
	return false
}

// Filter returns the artifacts with one of the given statuses, in insertion order.
func (s *Set) Filter(statuses ...Status) []Artifact {
	want := make(map[Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []Artifact
	for _, a := range s.items {
		if len(want) == 0 || want[a.Status] {
			out = append(out, a)
		}
	}
	return out
}

// All returns every artifact, history included.
func (s *Set) All() []Artifact {
	return s.Filter()
}

// Len returns the number of stored artifacts.
func (s *Set) Len() int { return len(s.items) }

// CountByStatus tallies artifacts per status.
func CountByStatus(artifacts []Artifact) map[Status]int {
	out := make(map[Status]int)
	for _, a := range artifacts {
		out[a.Status]++
	}
	return out
}

// SortByRef orders artifacts by path then symbol.
func SortByRef(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Ref.Path != artifacts[j].Ref.Path {
			return artifacts[i].Ref.Path < artifacts[j].Ref.Path
		}
		return artifacts[i].Ref.Symbol < artifacts[j].Ref.Symbol
	})
}
