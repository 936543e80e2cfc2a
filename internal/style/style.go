package style

import (
	"regexp"
	"strings"

	"docfill/internal/extractor"
)

// Style names.
const (
	Google  = "google"
	NumPy   = "numpy"
	Sphinx  = "sphinx"
	Epytext = "epytext"
	JSDoc   = "jsdoc"
	TSDoc   = "tsdoc"
	GoDoc   = "godoc"
)

// Convention is a documentation style recognised by a set of patterns.
type Convention struct {
	Name     string
	Patterns []*regexp.Regexp
	// Guide is handed to the oracle when generating text in this style.
	Guide string
}

func (c Convention) matches(sym extractor.Symbol) bool {
	if c.Name == GoDoc {
		return goDocMatch(sym)
	}
	for _, re := range c.Patterns {
		if re.MatchString(sym.ExistingDocumentation) {
			return true
		}
	}
	return false
}

// goDocMatch accepts comments that open with the symbol's name.
func goDocMatch(sym extractor.Symbol) bool {
	text := strings.TrimSpace(sym.ExistingDocumentation)
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, "//"), "/*"))
	for _, prefix := range []string{"A ", "An ", "The "} {
		text = strings.TrimPrefix(text, prefix)
	}
	return strings.HasPrefix(text, sym.Name+" ") || strings.HasPrefix(text, sym.Name+"\n") || text == sym.Name
}

var conventions = map[string][]Convention{
	"python": {
		{
			Name: Google,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?m)^\s*(Args|Arguments|Returns|Yields|Raises|Attributes|Example|Examples):\s*$`),
			},
			Guide: "Google style: a one-line summary, a blank line, then `Args:`, `Returns:` and `Raises:` sections with indented entries.",
		},
		{
			Name: NumPy,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?m)^\s*(Parameters|Returns|Yields|Raises|See Also|Notes|Examples)\s*\n\s*-{3,}\s*$`),
			},
			Guide: "NumPy style: a one-line summary, then `Parameters` and `Returns` sections underlined with dashes.",
		},
		{
			Name: Sphinx,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`:(param|type|returns?|rtype|raises?)\b`),
			},
			Guide: "Sphinx style: a one-line summary, then `:param name:`, `:type name:`, `:returns:` and `:rtype:` fields.",
		},
		{
			Name: Epytext,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`@(param|type|return|rtype|raise)\b`),
			},
			Guide: "Epytext style: a one-line summary, then `@param name:`, `@return:` and `@rtype:` fields.",
		},
	},
	"javascript": scriptConventions,
	"typescript": scriptConventions,
	"go": {
		{
			Name:  GoDoc,
			Guide: "Go doc comment style: complete sentences that begin with the name of the declared identifier; no tags or markup.",
		},
	},
}

var scriptConventions = []Convention{
	{
		Name: JSDoc,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`@(param|arg|argument)\s+\{`),
			regexp.MustCompile(`@returns?\b`),
			regexp.MustCompile(`@(throws|typedef|example|type)\b`),
		},
		Guide: "JSDoc style: a one-line summary, then `@param {Type} name description` and `@returns {Type} description` tags.",
	},
	{
		Name: TSDoc,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`@param\s+[\w$]+\s+-`),
			regexp.MustCompile(`@(remarks|typeParam|defaultValue|privateRemarks)\b`),
		},
		Guide: "TSDoc style: a one-line summary, then `@param name - description`, `@returns description` and optional `@remarks`.",
	},
}

// Conventions returns the conventions of a language in priority order.
func Conventions(language string) []Convention {
	return conventions[language]
}

// Default returns the fallback style of a language, or "" when unknown.
func Default(language string) string {
	if c := conventions[language]; len(c) > 0 {
		return c[0].Name
	}
	return ""
}

// Guide returns the generation guidance for a style name.
func Guide(name string) string {
	for _, list := range conventions {
		for _, c := range list {
			if c.Name == name {
				return c.Guide
			}
		}
	}
	return ""
}

// Analysis is the dominant style per language and how strongly it dominates.
type Analysis struct {
	PerLanguage map[string]string  `json:"per_language"`
	Confidence  map[string]float64 `json:"confidence"`
}

// StyleFor returns the detected style, falling back to the language default.
func (a Analysis) StyleFor(language string) string {
	if s, ok := a.PerLanguage[language]; ok && s != "" {
		return s
	}
	return Default(language)
}

// Analyze detects the dominant documentation convention per language. Every
// documented symbol, members included, counts once for each convention it
// matches; ties go to the convention listed first.
func Analyze(symbolsByLanguage map[string][]extractor.Symbol) Analysis {
	a := Analysis{
		PerLanguage: make(map[string]string),
		Confidence:  make(map[string]float64),
	}
	for lang, symbols := range symbolsByLanguage {
		list := conventions[lang]
		if len(list) == 0 {
			continue
		}

		counts := make([]int, len(list))
		documented := 0
		for _, sym := range extractor.Flatten(symbols) {
			if !sym.HasDocumentation {
				continue
			}
			documented++
			for i, c := range list {
				if c.matches(sym) {
					counts[i]++
				}
			}
		}

		best := 0
		for i := 1; i < len(counts); i++ {
			if counts[i] > counts[best] {
				best = i
			}
		}
		a.PerLanguage[lang] = list[best].Name
		if documented == 0 || counts[best] == 0 {
			a.PerLanguage[lang] = list[0].Name
			a.Confidence[lang] = 0
			continue
		}
		a.Confidence[lang] = float64(counts[best]) / float64(documented)
	}
	return a
}
