package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/memstore"
	"github.com/idilsaglam/tada/internal/todo"
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = runes(" ")
)

func newModel(t *testing.T, texts ...string) (Model, *todo.Store) {
	t.Helper()
	s := todo.New(memstore.New())
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	for _, txt := range texts {
		s.Add(txt)
	}
	m, cancel := New(s, nil)
	t.Cleanup(cancel)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model), s
}

// send feeds msgs through Update, then lets the model catch up with the store.
func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	next, _ := m.Update(changedMsg{})
	return next.(Model)
}

func texts(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func TestModel_InitialItems(t *testing.T) {
	m, _ := newModel(t, "A", "B")
	assert.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.View(), "A")
}

func TestModel_AddThroughInput(t *testing.T) {
	m, s := newModel(t)

	m = send(m, runes("a"), runes("B"), runes("u"), runes("y"), enter)
	assert.Equal(t, []string{"Buy"}, texts(s.Items()))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Len(t, m.list.Items(), 1)
}

func TestModel_AddBlankShowsError(t *testing.T) {
	m, s := newModel(t)

	m = send(m, runes("a"), runes(" "), enter)
	assert.Empty(t, s.Items())
	assert.Equal(t, modeAdd, m.mode)
	assert.NotEmpty(t, m.addErr)

	m = send(m, esc)
	assert.Equal(t, modeBrowse, m.mode)
}

func TestModel_ToggleDeleteUndo(t *testing.T) {
	m, s := newModel(t, "A", "B")

	m = send(m, space)
	assert.True(t, s.Items()[0].Completed)

	m = send(m, runes("d"))
	assert.Equal(t, []string{"B"}, texts(s.Items()))
	assert.Len(t, m.list.Items(), 1)

	m = send(m, runes("u"))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Text)
	assert.True(t, items[0].Completed)
	assert.Nil(t, m.undo)
}

func TestModel_EditUsesStoreSession(t *testing.T) {
	m, s := newModel(t, "A")

	m = send(m, runes("e"))
	require.Equal(t, modeEdit, m.mode)
	_, open := s.Editing()
	require.True(t, open)

	m = send(m, runes("!"))
	draft, _ := s.Editing()
	assert.Equal(t, "A!", draft.Text)
	assert.Equal(t, "A", s.Items()[0].Text)

	m = send(m, enter)
	assert.Equal(t, "A!", s.Items()[0].Text)
	_, open = s.Editing()
	assert.False(t, open)
	assert.Equal(t, modeBrowse, m.mode)
}

func TestModel_EditCancel(t *testing.T) {
	m, s := newModel(t, "A")

	m = send(m, runes("e"), runes("zzz"), esc)
	assert.Equal(t, "A", s.Items()[0].Text)
	_, open := s.Editing()
	assert.False(t, open)
	assert.Equal(t, modeBrowse, m.mode)
}

func TestModel_EditedItemRemovedElsewhere(t *testing.T) {
	m, s := newModel(t, "A")
	m = send(m, runes("e"))
	s.Remove(s.Items()[0].ID)

	m = send(m, runes("x"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Empty(t, s.Items())
}

func TestModel_StorageErrorShownInStatus(t *testing.T) {
	m, _ := newModel(t)
	next, _ := m.Update(storageErrMsg{err: errors.New("disk full")})
	m = next.(Model)
	assert.Equal(t, "storage: disk full", m.status)
	assert.Contains(t, m.View(), "disk full")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ChangesSignalled(t *testing.T) {
	m, s := newModel(t)
	s.Add("from elsewhere")

	msg := waitForChange(m.changes)()
	assert.IsType(t, changedMsg{}, msg)
}
