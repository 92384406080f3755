// Package tui implements the interactive review screen: an annotation
// sidebar, a draft excerpt pane, and a single-line input for quotes,
// comments, and replies.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klaboworld/marginalia/internal/anchor"
	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/controller"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/ui"
)

// promptPurpose tracks what the single input line is currently collecting.
type promptPurpose int

const (
	promptNone promptPurpose = iota
	promptQuote
	promptComment
	promptReply
)

const excerptContext = 3 // lines of draft text around the anchor

// Model is the bubbletea model for `mgn review`.
type Model struct {
	ctrl   *controller.Controller
	draft  *draft.Draft
	layout *anchor.Layout

	input   textinput.Model
	purpose promptPurpose

	width  int
	height int
	status string
}

// New builds the review model. The caller is responsible for an initial
// controller.Refresh.
func New(ctrl *controller.Controller, d *draft.Draft) Model {
	in := textinput.New()
	in.CharLimit = annotation.MaxContentLength
	in.Width = 60

	return Model{
		ctrl:   ctrl,
		draft:  d,
		layout: anchor.NewLayout(draft.PlainText(d.Body), 80),
		input:  in,
		width:  100,
		height: 30,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		if m.purpose != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

// updateBrowse handles keys while no input line is active.
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "c":
		m.ctrl.HandleKey("c", false)
		if m.ctrl.Mode() == controller.ModeComment {
			return m.openPrompt(promptQuote, "quote to highlight"), textinput.Blink
		}
		return m, nil

	case "r":
		m.ctrl.HandleKey("r", false)
		if m.ctrl.ReplyFocus() != "" {
			return m.openPrompt(promptReply, "reply"), textinput.Blink
		}
		m.status = "select an annotation first"
		return m, nil

	case "j", "down":
		m.ctrl.HandleKey("j", false)
	case "k", "up":
		m.ctrl.HandleKey("k", false)
	case " ":
		m.ctrl.HandleKey(" ", false)
		m.status = "resolved"
	case "x":
		m.ctrl.DeleteSelected()
		m.status = "deleted"
	case "tab":
		m.ctrl.SetShowResolved(!m.ctrl.ShowResolved())
	case "esc":
		m.ctrl.HandleKey("esc", false)
		m.status = ""
	}
	return m, nil
}

// updatePrompt handles keys while the input line is collecting text.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.HandleKey("esc", true)
		m.ctrl.CancelPending()
		return m.closePrompt(""), nil

	case "enter":
		return m.submitPrompt()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}

	switch m.purpose {
	case promptQuote:
		sel := annotation.TextQuoteSelector{Exact: value}
		if _, ok := m.layout.AnchorQuote(sel); !ok {
			m.status = fmt.Sprintf("%q not found in draft", value)
			return m, nil
		}
		m.ctrl.BeginHighlight(annotation.SelectorList{sel})
		return m.openPrompt(promptComment, "comment"), textinput.Blink

	case promptComment:
		m.ctrl.SubmitPending(value)
		if m.ctrl.Pending() != nil {
			m.status = "create failed"
			return m, nil
		}
		return m.closePrompt("annotation added"), nil

	case promptReply:
		m.ctrl.SubmitReply(value)
		if m.ctrl.ReplyFocus() != "" {
			m.status = "reply failed"
			return m, nil
		}
		return m.closePrompt("reply added"), nil
	}

	return m.closePrompt(""), nil
}

func (m Model) openPrompt(p promptPurpose, placeholder string) Model {
	m.purpose = p
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m
}

func (m Model) closePrompt(status string) Model {
	m.purpose = promptNone
	m.input.Blur()
	m.input.SetValue("")
	m.status = status
	return m
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	paneStyle     = lipgloss.NewStyle().PaddingLeft(2)
)

func (m Model) View() string {
	var b strings.Builder

	title := m.draft.Title
	if title == "" {
		title = m.draft.Slug
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(ui.Hint(fmt.Sprintf("  [%s]", m.ctrl.Mode())))
	b.WriteString("\n\n")

	b.WriteString(m.renderSidebar())
	b.WriteString("\n")
	b.WriteString(m.renderExcerpt())
	b.WriteString("\n")

	if m.purpose != promptNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(ui.Hint(m.status))
		b.WriteString("\n")
	}
	b.WriteString(ui.Hint("c comment · r reply · j/k move · space resolve · x delete · tab resolved · q quit"))

	return b.String()
}

func (m Model) renderSidebar() string {
	visible := m.ctrl.Visible()
	if len(visible) == 0 {
		return ui.Hint("  no annotations")
	}

	selected := m.ctrl.Selected()
	var b strings.Builder
	for _, a := range visible {
		line := fmt.Sprintf("%s %s %s",
			ui.Pin(a.PinNumber),
			ui.StatusSymbol(a.Status),
			ui.TruncateWithEllipsis(a.Content, 60))
		if selected != nil && selected.ID == a.ID {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
		for _, r := range a.Replies {
			b.WriteString(ui.Hint(fmt.Sprintf("      ↳ %s", ui.TruncateWithEllipsis(r.Content, 50))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderExcerpt shows the draft lines around the selected annotation's
// anchor, or nothing when the anchor no longer locates.
func (m Model) renderExcerpt() string {
	selected := m.ctrl.Selected()
	if selected == nil {
		return ""
	}
	g, ok := m.layout.AnchorAnnotation(selected)
	if !ok {
		return paneStyle.Render(ui.Hint("(anchor not found in current draft)"))
	}

	lines := m.layout.Lines()
	y := g.Pin.Y
	if len(g.Rects) > 0 {
		y = g.Rects[0].Y
	}
	center := int(y / anchor.LineHeight)
	if center >= len(lines) {
		center = len(lines) - 1
	}
	start := center - excerptContext
	if start < 0 {
		start = 0
	}
	end := center + excerptContext + 1
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i == center {
			b.WriteString(selectedStyle.Render(lines[i]))
		} else {
			b.WriteString(ui.Hint(lines[i]))
		}
		b.WriteString("\n")
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}
