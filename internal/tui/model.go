// Package tui is the interactive list view. It owns no todo state: every
// key press is forwarded to the todo.Store and the view is rebuilt from the
// store whenever it signals a change.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/todo"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct {
	item model.Item
}

func (i listItem) Title() string {
	box := boxUnchecked
	if i.item.Completed {
		box = boxChecked
	}
	return fmt.Sprintf("%s %s", box, i.item.Text)
}

func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Text }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	box := mutedStyle.Render(boxUnchecked)
	text := it.item.Text
	if it.item.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

// changedMsg tells the model to rebuild from the store.
type changedMsg struct{}

// storageErrMsg carries a storage failure reported by the store.
type storageErrMsg struct{ err error }

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
)

// removed remembers the last deleted item for single-level undo.
type removed struct {
	index int
	item  model.Item
}

type Model struct {
	store   *todo.Store
	changes <-chan struct{}
	errs    <-chan error

	list   list.Model
	ti     textinput.Model
	mode   mode
	addErr string
	status string
	undo   *removed

	width, height int
}

var (
	addBind  = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	undoBind = key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo"))
	delBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	togBind  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
)

// New builds the model and subscribes it to s. errs may be nil. The returned
// cancel func unsubscribes.
func New(s *todo.Store, errs <-chan error) (Model, func()) {
	changes := make(chan struct{}, 1)
	cancel := s.Subscribe(func(todo.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	extra := func() []key.Binding { return []key.Binding{togBind, addBind, editBind, delBind, undoBind} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		store:   s,
		changes: changes,
		errs:    errs,
		list:    l,
		ti:      ti,
		width:   80,
		height:  24,
	}
	m.refresh()
	return m, cancel
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), waitForErr(m.errs))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func waitForErr(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return storageErrMsg{err: err}
	}
}

// refresh rebuilds the list from the store.
func (m *Model) refresh() tea.Cmd {
	items := m.store.Items()
	li := make([]list.Item, 0, len(items))
	for _, it := range items {
		li = append(li, listItem{item: it})
	}
	done, pending := m.store.Stats()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(items),
	)
	return m.list.SetItems(li)
}

func (m Model) selected() (model.Item, int, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, -1, false
	}
	return it.item, model.Index(m.store.Items(), it.item.ID), true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width-4, max(m.height-4, 1))
		return m, nil
	case changedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, waitForChange(m.changes))
	case storageErrMsg:
		m.status = "storage: " + msg.err.Error()
		return m, waitForErr(m.errs)
	}

	switch m.mode {
	case modeAdd:
		return m.updateAdd(msg)
	case modeEdit:
		return m.updateEdit(msg)
	}

	km, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch km.String() {
	case "q", "esc", "ctrl+c":
		if km.String() == "esc" && m.list.FilterState() == list.FilterApplied {
			break
		}
		return m, tea.Quit
	case " ":
		if it, _, ok := m.selected(); ok {
			m.store.Toggle(it.ID)
		}
		return m, nil
	case "d":
		if it, idx, ok := m.selected(); ok && m.store.Remove(it.ID) {
			m.undo = &removed{index: idx, item: it}
		}
		return m, nil
	case "u":
		if m.undo != nil {
			m.store.Restore(m.undo.index, m.undo.item)
			m.undo = nil
		}
		return m, nil
	case "a":
		m.mode = modeAdd
		m.addErr = ""
		m.ti.SetValue("")
		m.ti.Placeholder = "New item..."
		cmd := m.ti.Focus()
		return m, cmd
	case "e":
		it, _, ok := m.selected()
		if !ok || !m.store.StartEdit(it.ID) {
			return m, nil
		}
		m.mode = modeEdit
		m.ti.SetValue(it.Text)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit item..."
		cmd := m.ti.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			if _, added := m.store.Add(m.ti.Value()); !added {
				m.addErr = "Text cannot be empty"
				return m, nil
			}
			m.closeInput()
			return m, nil
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.addErr = ""
	return m, cmd
}

// Edits go through the store's edit session: every keystroke updates the
// draft, enter commits it, esc cancels.
func (m Model) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, open := m.store.Editing(); !open {
		// Item was removed under us.
		m.closeInput()
		return m, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			m.store.CommitEdit()
			m.closeInput()
			return m, nil
		case "esc":
			m.store.CancelEdit()
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.store.SetDraft(m.ti.Value())
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.addErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m Model) View() string {
	inputOpen := m.mode != modeBrowse
	listHeight := m.height - 4
	if inputOpen {
		listHeight -= 4
	}
	if m.status != "" {
		listHeight--
	}
	m.list.SetSize(m.width-4, max(listHeight, 1))

	var b strings.Builder
	b.WriteString(m.list.View())
	if inputOpen {
		title := "Add new item"
		if m.mode == modeEdit {
			title = "Edit item"
		}
		if m.addErr != "" {
			title += " - " + errorStyle.Render(m.addErr)
		}
		b.WriteString("\n" + frameStyle.Render(title+"\n"+m.ti.View()))
	}
	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status))
	}
	return frameStyle.Render(b.String())
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(s *todo.Store, errs <-chan error, opts ...tea.ProgramOption) error {
	m, cancel := New(s, errs)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
