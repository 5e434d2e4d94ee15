package tui

import "github.com/charmbracelet/bubbles/key"

type listKeyMap struct {
	Open, New, Delete, Reload, ChangeKey, Copy key.Binding
}

func newListKeyMap() listKeyMap {
	return listKeyMap{
		Open:      key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
		New:       key.NewBinding(key.WithKeys("n", "a"), key.WithHelp("n", "new")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		ChangeKey: key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "key")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy phone")),
	}
}

func (k listKeyMap) bindings() []key.Binding {
	return []key.Binding{k.Open, k.New, k.Delete, k.Reload, k.ChangeKey, k.Copy}
}
