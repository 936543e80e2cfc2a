package style

import (
	"testing"

	"docfill/internal/extractor"

	"github.com/stretchr/testify/assert"
)

func doc(name, text string) extractor.Symbol {
	return extractor.Symbol{
		Kind:                  extractor.KindFunction,
		Name:                  name,
		HasDocumentation:      text != "",
		ExistingDocumentation: text,
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		lang       string
		symbols    []extractor.Symbol
		wantStyle  string
		wantConfid float64
	}{
		{
			name: "google wins python",
			lang: "python",
			symbols: []extractor.Symbol{
				doc("a", "\"\"\"Add.\n\n    Args:\n        x: first\n    \"\"\""),
				doc("b", "\"\"\"Sub.\n\n    Returns:\n        int\n    \"\"\""),
				doc("c", "\"\"\"Mul.\n\n    :param x: first\n    \"\"\""),
				doc("d", ""),
			},
			wantStyle:  Google,
			wantConfid: 2.0 / 3.0,
		},
		{
			name: "numpy sections",
			lang: "python",
			symbols: []extractor.Symbol{
				doc("a", "\"\"\"Add.\n\n    Parameters\n    ----------\n    x : int\n    \"\"\""),
			},
			wantStyle:  NumPy,
			wantConfid: 1,
		},
		{
			name: "ties go to the first convention",
			lang: "python",
			symbols: []extractor.Symbol{
				doc("a", "\"\"\":param x: value\"\"\""),
				doc("b", "\"\"\"@param x: value\"\"\""),
			},
			wantStyle:  Sphinx,
			wantConfid: 0.5,
		},
		{
			name:       "nothing documented falls back to the default",
			lang:       "javascript",
			symbols:    []extractor.Symbol{doc("a", "")},
			wantStyle:  JSDoc,
			wantConfid: 0,
		},
		{
			name: "tsdoc hyphenated params",
			lang: "typescript",
			symbols: []extractor.Symbol{
				doc("a", "/**\n * Adds.\n * @param x - first\n * @remarks pure\n */"),
			},
			wantStyle:  TSDoc,
			wantConfid: 1,
		},
		{
			name: "godoc names the identifier",
			lang: "go",
			symbols: []extractor.Symbol{
				doc("Run", "// Run starts the loop."),
				doc("Stop", "// halts everything"),
			},
			wantStyle:  GoDoc,
			wantConfid: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(map[string][]extractor.Symbol{tt.lang: tt.symbols})
			assert.Equal(t, tt.wantStyle, a.PerLanguage[tt.lang])
			assert.InDelta(t, tt.wantConfid, a.Confidence[tt.lang], 1e-9)
		})
	}
}

func TestAnalyze_CountsMembers(t *testing.T) {
	cls := extractor.Symbol{
		Kind: extractor.KindClass,
		Name: "K",
		Members: []extractor.Symbol{
			doc("m", "\"\"\"Do.\n\n    Args:\n        x: y\n    \"\"\""),
		},
	}
	a := Analyze(map[string][]extractor.Symbol{"python": {cls}})
	assert.Equal(t, Google, a.PerLanguage["python"])
	assert.InDelta(t, 1.0, a.Confidence["python"], 1e-9)
}

func TestAnalysis_StyleFor(t *testing.T) {
	a := Analysis{PerLanguage: map[string]string{"python": NumPy}}
	assert.Equal(t, NumPy, a.StyleFor("python"))
	assert.Equal(t, GoDoc, a.StyleFor("go"))
	assert.Equal(t, "", a.StyleFor("cobol"))
	assert.NotEmpty(t, Guide(Sphinx))
}
