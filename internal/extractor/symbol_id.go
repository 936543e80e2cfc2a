package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildStableSymbolID creates a deterministic symbol ID.
// The ID is derived from identity fields and a canonical signature hash, so
// it survives line shifts caused by inserted documentation.
func BuildStableSymbolID(path string, sym Symbol) string {
	lang := strings.TrimSpace(sym.Language)
	if lang == "" {
		lang = "unknown"
	}

	file := strings.TrimSpace(path)
	if file == "" {
		file = "_"
	}

	kind := strings.TrimSpace(string(sym.Kind))
	if kind == "" {
		kind = "symbol"
	}

	name := strings.TrimSpace(sym.QualifiedName())
	if name == "" {
		name = "_"
	}

	fingerprint := strings.Join([]string{
		lang,
		file,
		kind,
		name,
		canonicalize(sym.Signature),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf("%s/%s:%s:%s:%s", lang, file, kind, name, short)
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
