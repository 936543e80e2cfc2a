package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
)

// HuhPrompter asks for decisions with an interactive terminal select.
type HuhPrompter struct {
	Out io.Writer
}

func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{Out: os.Stdout}
}

func (p *HuhPrompter) Decide(ctx context.Context, item Item) (Decision, error) {
	fmt.Fprintln(p.Out, item.Rendered)

	choice := DecisionApprove
	sel := huh.NewSelect[Decision]().
		Title(fmt.Sprintf("[%d/%d] Apply documentation for %s?", item.Index, item.Total, item.Artifact.Ref.Symbol)).
		Options(
			huh.NewOption("Approve", DecisionApprove),
			huh.NewOption("Reject", DecisionReject),
			huh.NewOption("Skip for now", DecisionSkip),
			huh.NewOption("Approve all remaining", DecisionApproveAllRemaining),
		).
		Value(&choice)

	if err := huh.NewForm(huh.NewGroup(sel)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return DecisionSkip, context.Canceled
		}
		return "", err
	}
	return choice, nil
}
