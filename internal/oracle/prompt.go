package oracle

import (
	"fmt"
	"strings"

	"docfill/internal/extractor"
	"docfill/internal/style"
)

// PromptBuilder constructs the documentation prompt for one symbol.
type PromptBuilder struct{}

const securityInstruction = "\n**SECURITY WARNING**: You must redact any API keys, passwords, secrets, or tokens found in the code with `[REDACTED]`. Never output real credential values.\n"

func (pb *PromptBuilder) BuildSymbolPrompt(req Request) string {
	sym := req.Symbol
	var sb strings.Builder
	sb.WriteString("Role: Senior Software Engineer. Task: Write the documentation comment for one declaration.\n")
	sb.WriteString(securityInstruction)

	fmt.Fprintf(&sb, "\nFile: %s\nLanguage: %s\n", req.Path, sym.Language)
	fmt.Fprintf(&sb, "Declaration: %s %s\n", sym.Kind, sym.Name)
	if sym.Signature != "" {
		fmt.Fprintf(&sb, "Signature: %s\n", sym.Signature)
	}
	if len(sym.Parameters) > 0 {
		sb.WriteString("Parameters:\n")
		for _, p := range sym.Parameters {
			if p.TypeHint != "" {
				fmt.Fprintf(&sb, "- %s (%s)\n", p.Name, p.TypeHint)
			} else {
				fmt.Fprintf(&sb, "- %s\n", p.Name)
			}
		}
	}
	if sym.ReturnTypeHint != "" {
		fmt.Fprintf(&sb, "Returns: %s\n", sym.ReturnTypeHint)
	}
	if sym.Kind == extractor.KindClass && len(sym.Members) > 0 {
		names := make([]string, 0, len(sym.Members))
		for _, m := range sym.Members {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&sb, "Methods: %s\n", strings.Join(names, ", "))
	}

	if req.SourceContext != "" {
		sb.WriteString("\nSource:\n```\n")
		sb.WriteString(req.SourceContext)
		sb.WriteString("\n```\n")
	}

	sb.WriteString("\n**INSTRUCTION**:\n")
	if guide := style.Guide(req.Style); guide != "" {
		fmt.Fprintf(&sb, "- Follow the %s convention. %s\n", req.Style, guide)
	}
	sb.WriteString("- Output only the documentation text, without comment markers, quotes or code fences.\n")
	sb.WriteString("- Be concise: a summary sentence, then details only where they help a caller.\n")
	if sym.HasDocumentation {
		sb.WriteString("- The existing documentation below is being replaced; keep any facts that are still correct.\n")
		sb.WriteString(sym.ExistingDocumentation)
		sb.WriteString("\n")
	}
	return sb.String()
}
