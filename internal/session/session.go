package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"docfill/internal/artifact"
	"docfill/internal/backup"
	"docfill/internal/batch"
	"docfill/internal/extractor"
	"docfill/internal/metrics"
	"docfill/internal/mutation"
	"docfill/internal/oracle"
	"docfill/internal/preview"
	"docfill/internal/report"
	"docfill/internal/storage"
	"docfill/internal/style"

	"github.com/google/uuid"
)

var (
	// ErrNothingToDocument is returned by Generate when no file has parsed symbols.
	ErrNothingToDocument = errors.New("nothing to document: no symbols parsed")
	// ErrNoFiles is returned by LoadFiles when no source file could be read.
	ErrNoFiles = errors.New("no readable source files")
	// ErrBusy is returned when a path is already being mutated.
	ErrBusy = mutation.ErrBusy
	// ErrUnknownFile is returned for a path that was never loaded.
	ErrUnknownFile = errors.New("file not loaded")
)

// State is the pipeline stage of the session or of one file.
type State string

const (
	StateEmpty      State = "empty"
	StateDiscovered State = "discovered"
	StateParsed     State = "parsed"
	StateGenerated  State = "generated"
	StatePreviewed  State = "previewed"
	StateApplied    State = "applied"
)

// FileRecord is a loaded source file.
type FileRecord struct {
	Path     string
	Language string
	Size     int64
	Content  []byte
	Hash     string
	LoadedAt time.Time
	State    State
}

// Stats are monotonic counters over the session lifetime.
type Stats struct {
	FilesLoaded        int `json:"files_loaded"`
	FilesParsed        int `json:"files_parsed"`
	SymbolsExtracted   int `json:"symbols_extracted"`
	ArtifactsGenerated int `json:"artifacts_generated"`
	Approved           int `json:"approved"`
	Rejected           int `json:"rejected"`
	Skipped            int `json:"skipped"`
	EditsApplied       int `json:"edits_applied"`
	FilesMutated       int `json:"files_mutated"`
	FailedMutations    int `json:"failed_mutations"`
	Rollbacks          int `json:"rollbacks"`
}

// Documenter produces documentation text for one symbol. *oracle.Generator
// satisfies it.
type Documenter interface {
	Document(ctx context.Context, req oracle.Request) (string, error)
}

// Options tune the pipeline.
type Options struct {
	BatchSize  int
	Override   bool
	SkipErrors bool
	Policy     report.Policy
	// Exclude and Languages narrow discovery; Changed, when non-nil, keeps
	// only those root-relative paths.
	Exclude   []string
	Languages []string
	Changed   []string
	// RunOptions is the redacted options snapshot recorded with the run.
	RunOptions []byte
}

type Option func(*Session)

func WithOptions(o Options) Option {
	return func(s *Session) { s.opts = o }
}

func WithDocumenter(d Documenter) Option {
	return func(s *Session) { s.documenter = d }
}

func WithPreview(p *preview.Engine) Option {
	return func(s *Session) { s.preview = p }
}

func WithBackups(b *backup.Store) Option {
	return func(s *Session) { s.backups = b }
}

// WithMutationOptions configures the mutation engine built over the backup store.
func WithMutationOptions(opts ...mutation.Option) Option {
	return func(s *Session) { s.mutationOpts = append(s.mutationOpts, opts...) }
}

func WithExtractor(e *extractor.Extractor) Option {
	return func(s *Session) { s.extractor = e }
}

func WithLedger(l storage.Ledger) Option {
	return func(s *Session) { s.ledger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithWatchdog(w *batch.Watchdog) Option {
	return func(s *Session) { s.watchdog = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Session) { s.now = fn }
}

// Session owns every collection of one pipeline run: loaded files, parsed
// symbols, generated artifacts and backups. Components receive the slice
// they need and return new values; only the Session stores them.
type Session struct {
	ID string

	mu        sync.Mutex
	state     State
	root      string
	files     map[string]*FileRecord
	symbols   map[string][]extractor.Symbol
	artifacts map[string]*artifact.Set
	overrides map[artifact.Ref]bool
	styles    style.Analysis
	stats     Stats
	issues    *report.Log
	runBegun  bool

	opts         Options
	extractor    *extractor.Extractor
	documenter   Documenter
	preview      *preview.Engine
	backups      *backup.Store
	mutationOpts []mutation.Option
	mutation     *mutation.Engine
	ledger       storage.Ledger
	metrics      *metrics.Metrics
	watchdog     *batch.Watchdog
	logger       *slog.Logger
	now          func() time.Time
}

func New(opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		state:     StateEmpty,
		files:     make(map[string]*FileRecord),
		symbols:   make(map[string][]extractor.Symbol),
		artifacts: make(map[string]*artifact.Set),
		overrides: make(map[artifact.Ref]bool),
		issues:    report.NewLog(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extractor.NewExtractor(extractor.WithSkipErrors(s.opts.SkipErrors))
	}
	if s.preview == nil {
		s.preview = preview.NewEngine(preview.WithLogger(s.logger))
	}
	if s.backups == nil {
		s.backups = backup.NewStore(backup.WithLogger(s.logger))
	}
	s.mutation = mutation.NewEngine(s.backups, append([]mutation.Option{mutation.WithLogger(s.logger)}, s.mutationOpts...)...)
	if s.opts.BatchSize <= 0 {
		s.opts.BatchSize = batch.DefaultSize
	}
	return s
}

// Issues returns the issue log of the session.
func (s *Session) Issues() *report.Log {
	return s.issues
}

// record logs err as an issue and reports whether the policy aborts the run.
func (s *Session) record(err error, fallback report.Category) bool {
	issue := s.issues.Record(err, fallback)
	s.logger.Warn(issue.Message,
		slog.String("category", string(issue.Category)),
		slog.String("path", issue.Path),
		slog.String("symbol", issue.Symbol))
	return s.opts.Policy.ShouldAbort(err)
}

func (s *Session) between() batch.Options {
	if s.watchdog == nil {
		return batch.Options{}
	}
	return batch.Options{Between: s.watchdog.Between}
}

// paths returns the requested loaded paths, or every loaded path, sorted.
func (s *Session) paths(subset []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(subset) == 0 {
		out := make([]string, 0, len(s.files))
		for p := range s.files {
			out = append(out, p)
		}
		sort.Strings(out)
		return out, nil
	}
	out := make([]string, 0, len(subset))
	for _, p := range subset {
		if _, ok := s.files[p]; !ok {
			return nil, report.Wrap(report.CategoryValidation, p, "", ErrUnknownFile, "cannot process file")
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Session) setFileState(path string, st State) {
	if f, ok := s.files[path]; ok {
		f.State = st
	}
}

func (s *Session) set(path string) *artifact.Set {
	set, ok := s.artifacts[path]
	if !ok {
		set = &artifact.Set{}
		s.artifacts[path] = set
	}
	return set
}

func newSetFrom(items []artifact.Artifact) *artifact.Set {
	set := &artifact.Set{}
	for _, a := range items {
		set.Put(a)
	}
	return set
}

func hashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FileStatus summarises one file.
type FileStatus struct {
	Path         string `json:"path"`
	Language     string `json:"language"`
	State        State  `json:"state"`
	Symbols      int    `json:"symbols"`
	Undocumented int    `json:"undocumented"`
	Pending      int    `json:"pending"`
	Approved     int    `json:"approved"`
	Rejected     int    `json:"rejected"`
	Applied      int    `json:"applied"`
	Backups      int    `json:"backups"`
}

// Status is a snapshot of the session.
type Status struct {
	ID      string            `json:"id"`
	State   State             `json:"state"`
	Files   []FileStatus      `json:"files"`
	Styles  map[string]string `json:"styles,omitempty"`
	Stats   Stats             `json:"stats"`
	Summary report.Summary    `json:"summary"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:      s.ID,
		State:   s.state,
		Files:   make([]FileStatus, 0, len(s.files)),
		Styles:  s.styles.PerLanguage,
		Stats:   s.stats,
		Summary: s.issues.Summary(),
	}
	for _, f := range s.files {
		fs := FileStatus{
			Path:     f.Path,
			Language: f.Language,
			State:    f.State,
			Backups:  len(s.backups.Records(f.Path)),
		}
		for _, sym := range extractor.Flatten(s.symbols[f.Path]) {
			fs.Symbols++
			if !sym.HasDocumentation {
				fs.Undocumented++
			}
		}
		if set, ok := s.artifacts[f.Path]; ok {
			counts := artifact.CountByStatus(set.All())
			fs.Pending = counts[artifact.StatusPending]
			fs.Approved = counts[artifact.StatusApproved]
			fs.Rejected = counts[artifact.StatusRejected]
			fs.Applied = counts[artifact.StatusApplied]
		}
		st.Files = append(st.Files, fs)
	}
	sort.Slice(st.Files, func(i, j int) bool { return st.Files[i].Path < st.Files[j].Path })
	return st
}

// Symbols returns the parsed symbols of path.
func (s *Session) Symbols(path string) []extractor.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]extractor.Symbol(nil), s.symbols[path]...)
}

// Artifacts returns every artifact of path, history included.
func (s *Session) Artifacts(path string) []artifact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.artifacts[path]; ok {
		return set.All()
	}
	return nil
}

// File returns the loaded record of path.
func (s *Session) File(path string) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return FileRecord{}, false
	}
	return *f, true
}
