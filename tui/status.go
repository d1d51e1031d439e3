package tui

import (
	"fmt"
	"strings"
)

// renderStatusBar produces a full-width inverted status line showing
// quest title, status, milestone progress, and remaining policy length.
func (m Model) renderStatusBar() string {
	prog := m.quest.Progress

	left := fmt.Sprintf(" %s | %s", m.info.Title, prog.Status())
	mid := fmt.Sprintf("milestones %d/%d", len(prog.Triggered()), m.quest.Tree.Len())

	right := "policy: ?"
	if policy := prog.RemainingPolicy(); policy != nil {
		right = fmt.Sprintf("policy: %d steps ", len(policy))
	}

	bar := left + " | " + mid + " | " + right
	if m.width > len(bar) {
		bar += strings.Repeat(" ", m.width-len(bar))
	} else if m.width > 0 {
		bar = bar[:m.width]
	}
	return styleStatusBar.Render(bar)
}
