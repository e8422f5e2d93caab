package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search     key.Binding
	Play       key.Binding
	Up         key.Binding
	Down       key.Binding
	Pause      key.Binding
	Next       key.Binding
	Previous   key.Binding
	Mode       key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	SeekBack   key.Binding
	SeekFwd    key.Binding
	Hot        key.Binding
	Latest     key.Binding
	Favorite   key.Binding
	Favorites  key.Binding
	OffsetDown key.Binding
	OffsetUp   key.Binding
	OffsetZero key.Binding
	Stop       key.Binding
	List       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Play:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Pause:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Previous:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		Mode:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		VolumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "vol down")),
		SeekBack:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		SeekFwd:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		Hot:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hot")),
		Latest:     key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new")),
		Favorite:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		Favorites:  key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "favorites")),
		OffsetDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "lyrics earlier")),
		OffsetUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "lyrics later")),
		OffsetZero: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset sync")),
		Stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		List:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "list")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Play, k.Pause, k.Next, k.Mode, k.Favorite, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Hot, k.Latest, k.Favorites, k.List},
		{k.Up, k.Down, k.Play, k.Pause, k.Stop},
		{k.Next, k.Previous, k.Mode, k.Favorite},
		{k.VolumeUp, k.VolumeDown, k.SeekBack, k.SeekFwd},
		{k.OffsetDown, k.OffsetUp, k.OffsetZero, k.Help, k.Quit},
	}
}
