package ui

import tea "github.com/charmbracelet/bubbletea"

// activityMsg tells the model that session state changed outside Update.
type activityMsg struct{}

// startedMsg carries the result of the session start-up.
type startedMsg struct {
	err error
}

// downloadDoneMsg carries the result of a download.
type downloadDoneMsg struct {
	location string
	err      error
}

// activityBridge coalesces change notifications from the session's
// components into a single pending message.
type activityBridge struct {
	ch chan struct{}
}

func newActivityBridge() *activityBridge {
	return &activityBridge{ch: make(chan struct{}, 1)}
}

func (b *activityBridge) notify() {
	select {
	case b.ch <- struct{}{}:
	default:
	}
}

func (b *activityBridge) wait() tea.Cmd {
	return func() tea.Msg {
		<-b.ch

		return activityMsg{}
	}
}
