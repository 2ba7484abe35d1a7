package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	FocusLeft    key.Binding
	FocusRight   key.Binding
	Tab          key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding
	Execute      key.Binding
	Note         key.Binding
	Summarize    key.Binding
	SummarizeAll key.Binding
	Open         key.Binding
	Search       key.Binding
	Esc          key.Binding
	CycleFocus   key.Binding
	Export       key.Binding
	Copy         key.Binding
	Reload       key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		FocusLeft: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "focus list"),
		),
		FocusRight: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "focus detail"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle focus"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f"),
			key.WithHelp("pgdn", "page down"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev match"),
		),
		Execute: key.NewBinding(
			key.WithKeys("x", "!"),
			key.WithHelp("x", "execute command"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "add research note"),
		),
		Summarize: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "summarize row"),
		),
		SummarizeAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "summarize all"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open csv"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/clear"),
		),
		CycleFocus: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "cycle detail field"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export report"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy row"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Tab, k.Execute, k.Note, k.Summarize, k.Open, k.Search, k.CycleFocus, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.FocusLeft, k.FocusRight, k.Tab},
		{k.PageDown, k.PageUp, k.NextMatch, k.PrevMatch, k.Search, k.Esc},
		{k.Execute, k.Note, k.Summarize, k.SummarizeAll, k.Open, k.CycleFocus},
		{k.Export, k.Copy, k.Reload, k.Quit},
	}
}
