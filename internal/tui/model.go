package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imageqa/internal/service"
)

// QAPort is the TUI-facing subset of the QA service.
type QAPort interface {
	Ask(ctx context.Context, question string, k int) (*service.Response, error)
}

// Model is the Bubble Tea model for the interactive QA session.
type Model struct {
	service      QAPort
	input        textinput.Model
	viewport     viewport.Model
	response     *service.Response
	status       string
	banner       string
	cursor       int
	ready        bool
	lastQuestion string
}

// New creates a new TUI model. The banner line typically carries the
// ingest stats for the session.
func New(svc QAPort, banner string) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: svc, input: ti, viewport: vp, banner: banner, status: "Ready. Ask away."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and question boxes
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + banner
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				resp, err := m.service.Ask(context.Background(), q, 0)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.response = nil
				} else {
					m.status = fmt.Sprintf("Answered %q from %d chunks", q, len(resp.Sources))
					m.response = resp
					m.cursor = 0
					m.lastQuestion = q
					m.input.SetValue("")
				}
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "down":
			if m.response != nil && len(m.response.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.response.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.response != nil && len(m.response.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.response.Sources)) % len(m.response.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout: header, banner, answer pane, input, status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document QA")
	banner := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.banner)
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + banner + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.response == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(m.response.Answer))
	if len(m.response.Sources) == 0 {
		b.WriteString("\n\n" + sourceTitleStyle.Render("No grounding chunks (index is empty)."))
		return b.String()
	}
	src := m.response.Sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  chunk #%d  distance=%.4f",
		m.cursor+1, len(m.response.Sources), src.Chunk.Index, src.Distance)
	b.WriteString("\n\n" + sourceTitleStyle.Render(title))
	b.WriteString("\n" + src.Chunk.Text)
	return b.String()
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
