// Package tui is the interactive phonebook front-end.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Makepad-fr/phonebook/internal/model"
	"github.com/Makepad-fr/phonebook/internal/phonebook"
)

type screen int

const (
	screenKey screen = iota
	screenList
	screenForm
)

// listItem adapts model.Entry to bubbles/list.Item
type listItem struct{ model.Entry }

func (i listItem) Title() string       { return i.FullName() }
func (i listItem) Description() string { return i.PhoneNumber }
func (i listItem) FilterValue() string {
	return strings.Join([]string{i.Entry.Title, i.FirstName, i.LastName, i.PhoneNumber}, " ")
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	name := strings.TrimSpace(it.Entry.Title + " " + it.FullName())
	line := fmt.Sprintf("%s %-32s %s", mutedStyle.Render(symEntry), name,
		accentStyle.Render(symPhone+" "+it.PhoneNumber))
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

var formLabels = [...]string{"Title", "First", "Last", "Phone"}

// Model is the Bubble Tea model driving a phonebook.Controller.
type Model struct {
	ctx  context.Context
	ctrl *phonebook.Controller
	key  string

	screen screen
	keys   listKeyMap
	list   list.Model

	keyInput textinput.Model
	inputs   [len(formLabels)]textinput.Model
	focus    int

	busy   bool
	notice string
	err    error

	width, height int
}

// New builds the model. The controller is initialized with key on Init.
func New(ctx context.Context, ctrl *phonebook.Controller, authKey string) Model {
	keys := newListKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = titleStyle.Render("Phonebook")
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("entry", "entries")
	// k and d are taken by our own bindings
	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "l", "pgdown", "f"), key.WithHelp("→/l/pgdn", "next page"))
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	ki := textinput.New()
	ki.Prompt = "key> "
	ki.Placeholder = "paste your key, or ctrl+n for a new one"
	ki.CharLimit = 64
	ki.SetValue(authKey)

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		key:      authKey,
		screen:   screenList,
		keys:     keys,
		list:     l,
		keyInput: ki,
		busy:     true,
	}
	for i, label := range formLabels {
		ti := textinput.New()
		ti.Prompt = labelStyle.Render(label)
		ti.CharLimit = 255
		m.inputs[i] = ti
	}
	m.width, m.height = termSize()
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, ctrl *phonebook.Controller, key string) error {
	p := tea.NewProgram(New(ctx, ctrl, key), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, initialize(m.ctx, m.ctrl, m.key))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case initializedMsg:
		m.finish(msg.err)
		m.syncEntries()
		if !m.ctrl.Session().Valid {
			return m.showKeyScreen()
		}
		m.screen = screenList
		return m, nil

	case loadedMsg:
		m.finish(msg.err)
		m.syncEntries()
		if m.screen == screenKey && m.ctrl.Session().Valid {
			m.screen = screenList
			m.keyInput.Blur()
		}
		return m, nil

	case keyCreatedMsg:
		m.finish(msg.err)
		m.syncEntries()
		if msg.key != "" {
			m.keyInput.SetValue(msg.key)
			m.notice = "New key " + msg.key
		}
		if m.screen == screenKey && m.ctrl.Session().Valid {
			m.screen = screenList
			m.keyInput.Blur()
		}
		return m, nil

	case entryLoadedMsg:
		m.finish(msg.err)
		if msg.err != nil {
			return m, nil
		}
		return m.showForm()

	case submittedMsg:
		m.finish(msg.err)
		m.syncEntries()
		if msg.err == nil {
			m.screen = screenList
			m.notice = "Saved"
		}
		return m, nil

	case removedMsg:
		m.finish(msg.err)
		m.syncEntries()
		if msg.err == nil {
			m.notice = "Deleted"
		}
		return m, nil

	case copiedMsg:
		m.finish(msg.err)
		if msg.err == nil {
			m.notice = "Copied " + msg.phone
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenKey:
			return m.updateKey(msg)
		case screenForm:
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}

	return m.forward(msg)
}

// forward passes non-key messages (cursor blink, filter updates) down.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenKey:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case screenForm:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		k := strings.TrimSpace(m.keyInput.Value())
		m.start()
		return m, loadKey(m.ctx, m.ctrl, k)
	case "ctrl+n":
		m.start()
		return m, createKey(m.ctx, m.ctrl)
	case "esc":
		if m.ctrl.Session().Valid {
			m.screen = screenList
			m.keyInput.Blur()
			return m, nil
		}
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case msg.String() == "q":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Open):
		if e, ok := m.selected(); ok {
			m.start()
			return m, loadEntry(m.ctx, m.ctrl, model.ExistingTarget(e.ID))
		}
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.start()
		return m, loadEntry(m.ctx, m.ctrl, model.NewTarget())
	case key.Matches(msg, m.keys.Delete):
		if e, ok := m.selected(); ok {
			m.start()
			return m, remove(m.ctx, m.ctrl, model.ExistingTarget(e.ID))
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.start()
		return m, loadEntries(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.ChangeKey):
		return m.showKeyScreen()
	case key.Matches(msg, m.keys.Copy):
		if e, ok := m.selected(); ok && e.PhoneNumber != "" {
			return m, copyPhone(e.PhoneNumber)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenList
		return m, nil
	case "tab", "down":
		return m.focusInput(m.focus + 1), nil
	case "shift+tab", "up":
		return m.focusInput(m.focus - 1), nil
	case "enter":
		m.start()
		return m, submit(m.ctx, m.ctrl, m.formFields())
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) showKeyScreen() (tea.Model, tea.Cmd) {
	m.screen = screenKey
	m.keyInput.SetValue(m.ctrl.AuthKey())
	m.keyInput.CursorEnd()
	cmd := m.keyInput.Focus()
	return m, cmd
}

func (m Model) showForm() (tea.Model, tea.Cmd) {
	d := m.ctrl.Draft()
	for i, v := range []string{d.Title, d.FirstName, d.LastName, d.PhoneNumber} {
		m.inputs[i].SetValue(v)
		m.inputs[i].CursorEnd()
	}
	m.screen = screenForm
	return m.focusInput(0), textinput.Blink
}

func (m Model) focusInput(i int) Model {
	n := len(m.inputs)
	m.focus = ((i % n) + n) % n
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return m
}

func (m Model) formFields() model.Fields {
	v := func(i int) string { return strings.TrimSpace(m.inputs[i].Value()) }
	return model.Fields{Title: v(0), FirstName: v(1), LastName: v(2), PhoneNumber: v(3)}
}

func (m Model) selected() (model.Entry, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.Entry, ok
}

func (m *Model) start() {
	m.busy = true
	m.notice = ""
	m.err = nil
}

func (m *Model) finish(err error) {
	m.busy = false
	m.err = err
}

func (m *Model) syncEntries() {
	entries := m.ctrl.Entries()
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, listItem{e})
	}
	m.list.SetItems(items)
}

func (m Model) View() string {
	w, h := m.width, m.height
	st := m.ctrl.Session().Status()

	header := titleStyle.Render("Phonebook") + "  " + statusBadge(st)
	if st == phonebook.StatusInvalidAfterRetry {
		header += "  " + bannerStyle.Render("Invalid key")
	}

	var body string
	switch m.screen {
	case screenKey:
		body = m.keyView()
	case screenForm:
		body = m.formView()
	default:
		m.list.SetSize(w-4, h-6)
		body = m.list.View()
	}

	footer := ""
	switch {
	case m.busy:
		footer = mutedStyle.Render("working...")
	case m.err != nil:
		footer = errorStyle.Render(m.err.Error())
	case m.notice != "":
		footer = successStyle.Render(m.notice)
	}
	return panelString(lipgloss.JoinVertical(lipgloss.Left, header, "", body, footer))
}

func (m Model) keyView() string {
	lines := []string{
		"Enter the key of your phonebook.",
		"",
		m.keyInput.View(),
		"",
		helpStyle.Render("enter load  ctrl+n new key  esc back"),
	}
	return strings.Join(lines, "\n")
}

func (m Model) formView() string {
	title := "New entry"
	if id, ok := m.ctrl.Target().ID(); ok {
		title = fmt.Sprintf("Edit entry %d", id)
	}
	lines := []string{titleStyle.Render(title), ""}
	for i := range m.inputs {
		lines = append(lines, m.inputs[i].View())
	}
	lines = append(lines, "", helpStyle.Render("tab next field  enter save  esc cancel"))
	return barStyle.Render(strings.Join(lines, "\n"))
}

func statusBadge(s phonebook.Status) string {
	switch s {
	case phonebook.StatusAuthenticated:
		return successStyle.Render("● " + s.String())
	case phonebook.StatusUnauthenticated:
		return mutedStyle.Render("○ " + s.String())
	}
	return warnStyle.Render("● " + s.String())
}

func termSize() (int, int) {
	w, h := 80, 24
	if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		w, h = tw, th
	}
	return w, h
}
