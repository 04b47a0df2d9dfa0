package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRAG struct {
	calls  []string
	answer string
	err    error
}

func (f *fakeRAG) Answer(_ context.Context, q string) (string, error) {
	f.calls = append(f.calls, q)
	return f.answer, f.err
}

// collect runs cmd and any batched commands it produces, returning every
// message emitted.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findAnswer(t *testing.T, msgs []tea.Msg) answerMsg {
	t.Helper()
	for _, m := range msgs {
		if a, ok := m.(answerMsg); ok {
			return a
		}
	}
	require.FailNow(t, "no answer message emitted")
	return answerMsg{}
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func enter(m Model) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestEnterAsksAndRendersAnswer(t *testing.T) {
	rag := &fakeRAG{answer: "A01 requires thresholds for PM2.5."}
	m := sized(New(context.Background(), rag))
	m.input.SetValue("  What is A01?  ")

	m, cmd := enter(m)
	assert.True(t, m.busy)
	assert.Equal(t, "Thinking...", m.status)
	assert.Empty(t, m.input.Value())

	ans := findAnswer(t, collect(cmd))
	assert.Equal(t, []string{"What is A01?"}, rag.calls)

	next, _ := m.Update(ans)
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, "A01 requires thresholds for PM2.5.", m.answer)
	assert.Contains(t, m.View(), "Answer")
	assert.Contains(t, m.View(), "A01 requires thresholds")
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	rag := &fakeRAG{answer: "ok"}
	m := sized(New(context.Background(), rag))
	m.input.SetValue("first")
	m, _ = enter(m)

	m.input.SetValue("second")
	m, cmd := enter(m)

	assert.Nil(t, cmd)
	assert.Empty(t, rag.calls, "the pending question has not run yet")
	assert.Equal(t, "second", m.input.Value())
}

func TestEnterIgnoredForBlankInput(t *testing.T) {
	rag := &fakeRAG{}
	m := sized(New(context.Background(), rag))
	m.input.SetValue("   ")

	m, cmd := enter(m)

	assert.Nil(t, cmd)
	assert.False(t, m.busy)
}

func TestErrorShownVerbatim(t *testing.T) {
	m := sized(New(context.Background(), &fakeRAG{}))
	m.busy = true

	next, _ := m.Update(answerMsg{question: "q", err: errors.New("embed question: azure-openai embeddings: status 401")})
	m = next.(Model)

	assert.False(t, m.busy)
	assert.Equal(t, "Error: embed question: azure-openai embeddings: status 401", m.status)
	assert.Empty(t, m.answer)
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m := New(context.Background(), &fakeRAG{})
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", New(context.Background(), &fakeRAG{}).View())
}
