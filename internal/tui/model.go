package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Answer(ctx context.Context, question string) (string, error)
}

// answerMsg carries the outcome of one Answer call back to Update.
type answerMsg struct {
	question string
	answer   string
	err      error
}

const idleStatus = "Ask a question about WELL v2 and press Enter. Esc quits."

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	service  RAGPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	question string
	answer   string
	status   string
	busy     bool
	ready    bool
}

// New creates a new TUI model instance. ctx bounds every Answer call.
func New(ctx context.Context, service RAGPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about WELL v2"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   idleStatus,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-answerBoxStyle.GetHorizontalFrameSize())
		m.viewport.Height = max(3, msg.Height-reserved-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = idleStatus
			m.question = msg.question
			m.answer = msg.answer
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if m.busy || q == "" {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.Reset()
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		answer, err := svc.Answer(ctx, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the TUI layout and the latest answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("WELL Standard Chatbot")
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	var statusLine string
	if strings.HasPrefix(m.status, "Error: ") {
		statusLine = errorStyle.Render(status)
	} else {
		statusLine = statusStyle.Render(status)
	}
	answer := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "\n" + answer + "\n" + input + "\n" + statusLine
}

// renderAnswer returns the answer text unchanged, wrapped only for display.
func (m Model) renderAnswer() string {
	if m.question == "" {
		return "No answer yet."
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width))
	return headingStyle.Render("Answer") + "\n" +
		questionStyle.Render(m.question) + "\n\n" +
		wrap.Render(m.answer)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	headingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
