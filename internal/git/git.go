package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// Runner executes git with args in dir and returns stdout.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// GetChangedFiles runs git diff in dir and returns the files changed since
// baseRef, relative to dir, with the new-side line numbers that changed.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	return getChangedFiles(ctx, execGit, dir, baseRef)
}

func getChangedFiles(ctx context.Context, run Runner, dir, baseRef string) ([]ChangedFile, error) {
	output, err := run(ctx, dir, "diff", "-U0", "--no-color", "--relative", baseRef)
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	return parseDiff(output)
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return []ChangedFile{}, nil
	}
	fileDiffs, err := diff.ParseMultiFileDiff(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse git diff: %w", err)
	}

	changes := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		// deleted files have nothing left to document
		if fd.NewName == "/dev/null" {
			continue
		}
		cf := ChangedFile{Path: strings.TrimPrefix(fd.NewName, "b/"), ChangedLines: []int{}}
		for _, h := range fd.Hunks {
			for i := int32(0); i < h.NewLines; i++ {
				cf.ChangedLines = append(cf.ChangedLines, int(h.NewStartLine+i))
			}
		}
		changes = append(changes, cf)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// Paths returns the paths of changes.
func Paths(changes []ChangedFile) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}
