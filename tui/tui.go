package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/questforge/engine"
	"github.com/nathoo/questforge/engine/progress"
	"github.com/nathoo/questforge/loader"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

type lineKind int

const (
	kindNarrative lineKind = iota
	kindError
	kindWon
	kindLost
	kindPolicy
)

// Model is the Bubble Tea model for the quest player.
type Model struct {
	quest *engine.Quest
	info  loader.QuestInfo

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
}

// stepMsg carries the outcome of one fed action into the Update loop.
type stepMsg struct {
	input    string
	lines    []rawLine
	isSystem bool
}

// New creates a TUI model wired to the given quest.
func New(q *engine.Quest, info loader.QuestInfo) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		quest:   q,
		info:    info,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(q *engine.Quest, info loader.QuestInfo) error {
	m := New(q, info)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init produces the intro lines.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg {
		var lines []rawLine
		title := m.info.Title
		if m.info.Author != "" {
			title += " by " + m.info.Author
		}
		lines = append(lines, rawLine{text: title})
		if m.info.Intro != "" {
			lines = append(lines, rawLine{text: m.info.Intro})
		}
		lines = append(lines, rawLine{text: "Type actions like open(box). /help for commands.", isSystem: true})
		return stepMsg{lines: lines}
	})
}

// Update handles key presses, window resizes, and step outcomes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case stepMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(stepMsg{input: input, lines: []rawLine{{text: "Nothing to repeat.", isSystem: true}}})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		lines, quit := m.handleMeta(input)
		m = m.appendOutput(stepMsg{input: input, lines: lines, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m = m.appendOutput(stepMsg{input: input, lines: m.step(input)})
	return m, nil
}

// step feeds one action literal and renders the outcome.
func (m Model) step(input string) []rawLine {
	status, err := m.quest.Feed(input)
	if err != nil {
		return []rawLine{{text: fmt.Sprintf("Can't do that: %v", err), kind: kindError}}
	}
	var lines []rawLine
	switch status {
	case progress.Won:
		lines = append(lines, rawLine{text: "You have completed the quest!", kind: kindWon})
	case progress.Lost:
		lines = append(lines, rawLine{text: "The quest can no longer be completed.", kind: kindLost})
	default:
		lines = append(lines, rawLine{text: fmt.Sprintf("Done. (%d/%d milestones)",
			len(m.quest.Progress.Triggered()), m.quest.Tree.Len())})
		if m.trace {
			lines = append(lines, m.policyLines()...)
		}
	}
	return lines
}

// handleMeta dispatches meta-commands. Returns output and whether to quit.
func (m *Model) handleMeta(input string) ([]rawLine, bool) {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return []rawLine{{text: "Goodbye.", isSystem: true}}, true

	case "/help":
		return []rawLine{
			{text: "Actions are grounded literals: open(box), take(key, box), ...", isSystem: true},
			{text: "/policy /events /chain /state /trace /quit", isSystem: true},
		}, false

	case "/policy":
		return m.policyLines(), false

	case "/events":
		triggered := map[string]bool{}
		for _, ev := range m.quest.Progress.Triggered() {
			triggered[ev.Name] = true
		}
		var lines []rawLine
		for _, ev := range m.quest.Tree.Events() {
			mark := "[ ]"
			if triggered[ev.Name] {
				mark = "[x]"
			}
			lines = append(lines, rawLine{text: mark + " " + ev.Name, isSystem: true})
		}
		return lines, false

	case "/chain":
		var lines []rawLine
		for i, a := range m.quest.Chain.Actions {
			lines = append(lines, rawLine{text: fmt.Sprintf("%d. %s", i+1, a), isSystem: true})
		}
		return lines, false

	case "/state":
		lines := []rawLine{{text: "Status: " + m.quest.Progress.Status().String(), isSystem: true}}
		for _, f := range m.quest.Progress.State().Facts() {
			lines = append(lines, rawLine{text: "  " + f.String(), isSystem: true})
		}
		return lines, false

	case "/trace":
		m.trace = !m.trace
		return []rawLine{{text: "Trace toggled.", isSystem: true}}, false

	default:
		return []rawLine{{text: "Unknown command. Type /help.", isSystem: true}}, false
	}
}

func (m Model) policyLines() []rawLine {
	policy := m.quest.Progress.RemainingPolicy()
	if policy == nil {
		return []rawLine{{text: "No single remaining policy is known.", kind: kindPolicy}}
	}
	if len(policy) == 0 {
		return []rawLine{{text: "Nothing left to do.", kind: kindPolicy}}
	}
	lines := []rawLine{{text: "Winning policy:", kind: kindPolicy}}
	for i, a := range policy {
		lines = append(lines, rawLine{text: fmt.Sprintf("  %d. %s", i+1, a), kind: kindPolicy})
	}
	return lines
}

// appendOutput adds lines to the transcript and refreshes the viewport.
func (m Model) appendOutput(msg stepMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	for _, line := range msg.lines {
		if msg.isSystem {
			line.isSystem = true
		}
		m.rawLines = append(m.rawLines, line)
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// refreshViewport re-styles all raw lines and updates the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(rl.text))
		case rl.isSystem:
			styled = append(styled, styleSystem.Render(rl.text))
		default:
			styled = append(styled, renderLineKind(rl.text, rl.kind))
		}
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindError:
		return styleError.Render(line)
	case kindWon:
		return styleWon.Render(line)
	case kindLost:
		return styleLost.Render(line)
	case kindPolicy:
		return stylePolicy.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// View renders viewport, status bar, and input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}
