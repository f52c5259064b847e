package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	TextView    key.Binding
	UploadView  key.Binding
	SwitchView  key.Binding
	Generate    key.Binding
	Play        key.Binding
	Pause       key.Binding
	Stop        key.Binding
	Download    key.Binding
	Voice       key.Binding
	Rate        key.Binding
	Pitch       key.Binding
	RemoteVoice key.Binding
	RemoteModel key.Binding
	Browse      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		TextView:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "text")),
		UploadView:  key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "upload")),
		SwitchView:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("^T", "switch tab")),
		Generate:    key.NewBinding(key.WithKeys("f5"), key.WithHelp("F5", "generate")),
		Play:        key.NewBinding(key.WithKeys("f6"), key.WithHelp("F6", "play")),
		Pause:       key.NewBinding(key.WithKeys("f7"), key.WithHelp("F7", "pause/resume")),
		Stop:        key.NewBinding(key.WithKeys("f8"), key.WithHelp("F8", "stop")),
		Download:    key.NewBinding(key.WithKeys("f9"), key.WithHelp("F9", "download")),
		Voice:       key.NewBinding(key.WithKeys("f10"), key.WithHelp("F10", "voice")),
		Rate:        key.NewBinding(key.WithKeys("f11"), key.WithHelp("F11", "rate")),
		Pitch:       key.NewBinding(key.WithKeys("f12"), key.WithHelp("F12", "pitch")),
		RemoteVoice: key.NewBinding(key.WithKeys("alt+v"), key.WithHelp("M-v", "remote voice")),
		RemoteModel: key.NewBinding(key.WithKeys("alt+m"), key.WithHelp("M-m", "remote model")),
		Browse:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load file")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^C", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchView, k.Generate, k.Play, k.Pause, k.Stop, k.Download, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TextView, k.UploadView, k.SwitchView, k.Browse},
		{k.Generate, k.Play, k.Pause, k.Stop, k.Download},
		{k.Voice, k.Rate, k.Pitch, k.RemoteVoice, k.RemoteModel},
		{k.Quit},
	}
}
