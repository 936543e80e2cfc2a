package report

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"syscall"
)

// Category is the stable classification of a recorded error.
type Category string

const (
	CategoryParse      Category = "parse_error"
	CategoryOracle     Category = "oracle_error"
	CategoryIO         Category = "io_error"
	CategoryIntegrity  Category = "integrity_error"
	CategoryValidation Category = "validation_error"
)

// categoryOrder fixes the order categories are listed in summaries.
var categoryOrder = []Category{
	CategoryParse,
	CategoryOracle,
	CategoryIO,
	CategoryIntegrity,
	CategoryValidation,
}

var remediation = map[Category]string{
	CategoryParse:      "Fix the syntax errors in the listed files or rerun with --skip-errors to ignore them.",
	CategoryOracle:     "Check the API key, provider quota and network connectivity, then rerun generation.",
	CategoryIO:         "Check file permissions and free disk space; affected files were left unchanged.",
	CategoryIntegrity:  "The written file failed verification and was restored from its backup; inspect the generated text.",
	CategoryValidation: "Re-scan the files (symbols may have moved) or pass --override to replace existing documentation.",
}

// Severity ranks how serious an error is for the run policy.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Error is a categorized pipeline error carrying enough context to locate it.
type Error struct {
	Category Category
	Severity Severity
	Path     string
	Symbol   string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Category))
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
		if e.Symbol != "" {
			sb.WriteString(":")
			sb.WriteString(e.Symbol)
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Newf builds an Error with severity "error".
func Newf(cat Category, path, symbol, format string, args ...any) *Error {
	return &Error{
		Category: cat,
		Severity: SeverityError,
		Path:     path,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a category and location to err. The severity is derived from
// the underlying error: permission and disk-space failures are critical.
func Wrap(cat Category, path, symbol string, err error, message string) *Error {
	return &Error{
		Category: cat,
		Severity: severityOf(cat, err),
		Path:     path,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Critical marks the error as critical and returns it.
func (e *Error) Critical() *Error {
	e.Severity = SeverityCritical
	return e
}

func severityOf(cat Category, err error) Severity {
	if err == nil {
		return SeverityError
	}
	var re *Error
	if errors.As(err, &re) && re.Severity == SeverityCritical {
		return SeverityCritical
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.ENOSPC) {
		return SeverityCritical
	}
	if cat == CategoryValidation {
		return SeverityWarning
	}
	return SeverityError
}

// CategoryOf returns the category of err, or "" when err is not a report.Error.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// IsCritical reports whether err carries critical severity.
func IsCritical(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Severity == SeverityCritical
	}
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.ENOSPC)
}

// Policy decides whether a recorded error aborts the run.
type Policy struct {
	Strict bool
}

// ShouldAbort is true in strict mode for critical errors. Lenient runs record
// everything and continue with the next unit.
func (p Policy) ShouldAbort(err error) bool {
	if err == nil {
		return false
	}
	return p.Strict && IsCritical(err)
}

// Issue is the recorded, user-visible form of an Error.
type Issue struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path,omitempty"`
	Symbol   string   `json:"symbol,omitempty"`
	Message  string   `json:"message"`
}

// Log collects issues across a run. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	issues []Issue
}

func NewLog() *Log {
	return &Log{}
}

// Record stores err as an issue. Errors that are not report.Errors are
// recorded under fallback.
func (l *Log) Record(err error, fallback Category) Issue {
	issue := toIssue(err, fallback)
	l.mu.Lock()
	l.issues = append(l.issues, issue)
	l.mu.Unlock()
	return issue
}

func toIssue(err error, fallback Category) Issue {
	var re *Error
	if errors.As(err, &re) {
		msg := re.Message
		if re.Err != nil {
			msg = msg + ": " + re.Err.Error()
		}
		return Issue{
			Category: re.Category,
			Severity: re.Severity,
			Path:     re.Path,
			Symbol:   re.Symbol,
			Message:  msg,
		}
	}
	return Issue{
		Category: fallback,
		Severity: severityOf(fallback, err),
		Message:  err.Error(),
	}
}

// Issues returns a copy of the recorded issues in recording order.
func (l *Log) Issues() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Issue, len(l.issues))
	copy(out, l.issues)
	return out
}

// Len returns the number of recorded issues.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}

// Reset drops all recorded issues.
func (l *Log) Reset() {
	l.mu.Lock()
	l.issues = nil
	l.mu.Unlock()
}

// CategoryCount is one line of a Summary.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Hint     string   `json:"hint"`
}

// Summary reports counts by category with one remediation hint per category present.
type Summary struct {
	Total      int             `json:"total"`
	Critical   int             `json:"critical"`
	Categories []CategoryCount `json:"categories"`
}

func (l *Log) Summary() Summary {
	issues := l.Issues()
	counts := make(map[Category]int)
	s := Summary{Total: len(issues)}
	for _, is := range issues {
		counts[is.Category]++
		if is.Severity == SeverityCritical {
			s.Critical++
		}
	}

	known := make(map[Category]bool, len(categoryOrder))
	for _, cat := range categoryOrder {
		known[cat] = true
		if counts[cat] == 0 {
			continue
		}
		s.Categories = append(s.Categories, CategoryCount{Category: cat, Count: counts[cat], Hint: remediation[cat]})
	}

	var extra []Category
	for cat := range counts {
		if !known[cat] {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, cat := range extra {
		s.Categories = append(s.Categories, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return s
}

// Hint returns the remediation hint for a category.
func Hint(cat Category) string {
	return remediation[cat]
}
