package tui

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/phonebook/internal/model"
	"github.com/Makepad-fr/phonebook/internal/phonebook"
)

// Every controller call runs as a tea.Cmd and reports back with one of these.
type (
	initializedMsg struct{ err error }
	loadedMsg      struct{ err error }
	keyCreatedMsg  struct {
		key string
		err error
	}
	entryLoadedMsg struct{ err error }
	submittedMsg   struct{ err error }
	removedMsg     struct{ err error }
	copiedMsg      struct {
		phone string
		err   error
	}
)

func initialize(ctx context.Context, c *phonebook.Controller, key string) tea.Cmd {
	return func() tea.Msg { return initializedMsg{err: c.Initialize(ctx, key)} }
}

func loadEntries(ctx context.Context, c *phonebook.Controller) tea.Cmd {
	return func() tea.Msg { return loadedMsg{err: c.LoadEntries(ctx)} }
}

func loadKey(ctx context.Context, c *phonebook.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		c.SetAuthKey(key)
		return loadedMsg{err: c.LoadKey(ctx)}
	}
}

func createKey(ctx context.Context, c *phonebook.Controller) tea.Cmd {
	return func() tea.Msg {
		key, err := c.CreateKey(ctx)
		return keyCreatedMsg{key: key, err: err}
	}
}

func loadEntry(ctx context.Context, c *phonebook.Controller, t model.Target) tea.Cmd {
	return func() tea.Msg {
		c.SelectEntry(t)
		return entryLoadedMsg{err: c.LoadEntry(ctx)}
	}
}

func submit(ctx context.Context, c *phonebook.Controller, f model.Fields) tea.Cmd {
	return func() tea.Msg {
		c.UpdateDraft(func(d *model.EntryDraft) {
			d.Title = f.Title
			d.FirstName = f.FirstName
			d.LastName = f.LastName
			d.PhoneNumber = f.PhoneNumber
		})
		return submittedMsg{err: c.Submit(ctx)}
	}
}

func remove(ctx context.Context, c *phonebook.Controller, t model.Target) tea.Cmd {
	return func() tea.Msg {
		c.SelectEntry(t)
		return removedMsg{err: c.Remove(ctx)}
	}
}

var writeClipboard = clipboard.WriteAll

func copyPhone(phone string) tea.Cmd {
	return func() tea.Msg { return copiedMsg{phone: phone, err: writeClipboard(phone)} }
}
