// Package cli provides terminal I/O, output formatting, and
// meta-command dispatch for playing a designed quest without the TUI.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/questforge/engine"
	"github.com/nathoo/questforge/engine/progress"
	"github.com/nathoo/questforge/loader"
)

// CLI handles terminal interaction with the player. Actions are typed
// as grounded literals, e.g. "open(box)".
type CLI struct {
	Quest     *engine.Quest
	Info      loader.QuestInfo
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	lastCmd   string
}

// New creates a CLI wired to the given quest.
func New(q *engine.Quest, info loader.QuestInfo) *CLI {
	return &CLI{
		Quest: q,
		Info:  info,
		In:    os.Stdin,
		Out:   os.Stdout,
	}
}

// Run starts the play loop: show the intro and the designed policy,
// then loop: prompt, input, feed, report status.
func (c *CLI) Run() {
	if c.Info.Title != "" {
		c.printLine(c.Info.Title)
	}
	if c.Info.Intro != "" {
		c.printLine(c.Info.Intro)
	}
	c.printLine("")
	c.cmdPolicy()

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last action.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.step(input)
	}
}

// step feeds one action literal and reports the outcome.
func (c *CLI) step(input string) {
	status, err := c.Quest.Feed(input)
	if err != nil {
		c.printLine(fmt.Sprintf("Can't do that: %v", err))
		return
	}
	switch status {
	case progress.Won:
		c.printLine("You have completed the quest!")
	case progress.Lost:
		c.printLine("The quest can no longer be completed.")
	default:
		c.printLine(fmt.Sprintf("Done. (%d/%d milestones)",
			len(c.Quest.Progress.Triggered()), c.Quest.Tree.Len()))
	}
	if c.Trace {
		c.cmdPolicy()
	}
}

// handleMeta dispatches meta-commands. Returns true if play should end.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/events":
		c.cmdEvents()

	case "/policy":
		c.cmdPolicy()

	case "/chain":
		c.cmdChain()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Actions are grounded literals: open(box), take(key, box), ...",
		"System:",
		"  /policy  — Show the remaining winning policy",
		"  /events  — Show milestones and which have triggered",
		"  /chain   — Show the designed solution chain",
		"  /state   — Show the current world facts",
		"  /trace   — Toggle policy output after each action",
		"  /quit    — Exit",
	}
	for _, line := range help {
		c.printSystem(line)
	}
}

func (c *CLI) cmdState() {
	c.printSystem(fmt.Sprintf("Status: %s", c.Quest.Progress.Status()))
	for _, f := range c.Quest.Progress.State().Facts() {
		c.printSystem("  " + f.String())
	}
}

func (c *CLI) cmdEvents() {
	triggered := map[string]bool{}
	for _, ev := range c.Quest.Progress.Triggered() {
		triggered[ev.Name] = true
	}
	for _, ev := range c.Quest.Tree.Events() {
		mark := "[ ]"
		if triggered[ev.Name] {
			mark = "[x]"
		}
		c.printSystem(fmt.Sprintf("  %s %s", mark, ev.Name))
	}
}

func (c *CLI) cmdPolicy() {
	policy := c.Quest.Progress.RemainingPolicy()
	if policy == nil {
		c.printSystem("No single remaining policy is known.")
		return
	}
	if len(policy) == 0 {
		c.printSystem("Nothing left to do.")
		return
	}
	c.printSystem("Winning policy:")
	for i, a := range policy {
		c.printSystem(fmt.Sprintf("  %d. %s", i+1, a))
	}
}

func (c *CLI) cmdChain() {
	for i, a := range c.Quest.Chain.Actions {
		c.printSystem(fmt.Sprintf("  %d. %s", i+1, a))
	}
}

func (c *CLI) print(s string) {
	fmt.Fprint(c.Out, s)
}

func (c *CLI) printLine(s string) {
	fmt.Fprintln(c.Out, s)
}

func (c *CLI) printSystem(s string) {
	fmt.Fprintln(c.Out, s)
}
