package extractor

// Kind is the type of a documentable symbol.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
)

// AnonymousName is used when a declaration has no resolvable identifier.
const AnonymousName = "anonymous"

// Location is a 1-based, inclusive line range.
type Location struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Param is a single declared parameter.
type Param struct {
	Name     string `json:"name"`
	TypeHint string `json:"type_hint,omitempty"`
}

// Symbol is a documentable unit extracted from one file. Symbols are created
// fresh on every parse and never modified afterwards.
type Symbol struct {
	Kind           Kind     `json:"kind"`
	Name           string   `json:"name"`
	Language       string   `json:"language"`
	Location       Location `json:"location"`
	Parameters     []Param  `json:"parameters"`
	ReturnTypeHint string   `json:"return_type_hint,omitempty"`

	// HasDocumentation is true exactly when ExistingDocumentation is non-empty.
	// ExistingDocumentation holds the raw block, comment markers included.
	HasDocumentation      bool   `json:"has_documentation"`
	ExistingDocumentation string `json:"existing_documentation,omitempty"`

	Members []Symbol `json:"members,omitempty"` // classes only
	// Owner is the enclosing class of a member, or the receiver type of a Go method.
	Owner string `json:"owner,omitempty"`

	Signature string `json:"signature"`
	Indent    string `json:"indent"` // leading whitespace of the declaration line

	// BodyLine and BodyColumn locate the first token of the body (1-based line,
	// 0-based byte column). Indentation languages insert documentation there.
	BodyLine   int `json:"body_line,omitempty"`
	BodyColumn int `json:"body_column,omitempty"`
}

// withDoc returns a copy of s with the raw documentation block attached.
func (s Symbol) withDoc(raw string) Symbol {
	s.ExistingDocumentation = raw
	s.HasDocumentation = raw != ""
	return s
}

// QualifiedName is Owner.Name for methods with an owner, else Name. It
// tells apart same-named methods of different classes in one file.
func (s Symbol) QualifiedName() string {
	if s.Owner == "" {
		return s.Name
	}
	return s.Owner + "." + s.Name
}

// Walk visits s and then each of its members.
func (s Symbol) Walk(fn func(Symbol)) {
	fn(s)
	for _, m := range s.Members {
		m.Walk(fn)
	}
}

// Flatten returns the symbols and their members in declaration order.
func Flatten(symbols []Symbol) []Symbol {
	var out []Symbol
	for _, s := range symbols {
		s.Walk(func(x Symbol) { out = append(out, x) })
	}
	return out
}

// Result is the outcome of extracting one file.
type Result struct {
	Path     string   `json:"path"`
	Language string   `json:"language"`
	Symbols  []Symbol `json:"symbols"`
	Errors   []string `json:"errors,omitempty"`
}
