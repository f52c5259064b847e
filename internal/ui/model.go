// Package ui is the interactive terminal front-end: two input tabs, the
// playback and download controls, the voice settings and the status line.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/fileutil"
	"github.com/book-expert/tts-studio/internal/playback"
	"github.com/book-expert/tts-studio/internal/session"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	appTitle      = "TTS Studio"
	editorHeight  = 10
	minEditorRows = 3
	// chromeHeight counts the header, settings, controls, status and help
	// lines plus their separators.
	chromeHeight = 9
)

const (
	editorPlaceholder = "Enter your text here..."
	pathPlaceholder   = "Drop a .txt file here, or type its path and press Enter"
)

// Model is the bubbletea model over one session.
type Model struct {
	ctx         context.Context
	session     *session.Session
	keys        keyMap
	help        help.Model
	editor      textarea.Model
	path        textinput.Model
	bridge      *activityBridge
	snapshot    session.Snapshot
	width       int
	height      int
	downloading bool
	quitting    bool
}

// NewModel creates a Model and subscribes it to the session's components.
func NewModel(ctx context.Context, sess *session.Session) Model {
	editor := textarea.New()
	editor.Placeholder = editorPlaceholder
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetHeight(editorHeight)
	editor.Focus()

	path := textinput.New()
	path.Placeholder = pathPlaceholder
	path.Prompt = "> "

	bridge := newActivityBridge()
	sess.Status().Subscribe(func(status.Status) { bridge.notify() })
	sess.Player().Subscribe(func(playback.Event) { bridge.notify() })
	sess.Catalog().Subscribe(func([]core.Voice) { bridge.notify() })

	snapshot := sess.Snapshot()
	editor.SetValue(snapshot.Text)

	return Model{
		ctx:      ctx,
		session:  sess,
		keys:     defaultKeyMap(),
		help:     help.New(),
		editor:   editor,
		path:     path,
		bridge:   bridge,
		snapshot: snapshot,
	}
}

// Init starts the session and the activity loop.
func (m Model) Init() tea.Cmd {
	sess := m.session
	ctx := m.ctx

	return tea.Batch(
		textarea.Blink,
		m.bridge.wait(),
		func() tea.Msg { return startedMsg{err: sess.Start(ctx)} },
	)
}

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.editor.SetWidth(max(msg.Width-2, 1))
		m.editor.SetHeight(max(msg.Height-chromeHeight, minEditorRows))
		m.path.Width = max(msg.Width-4, 1)

		return m, nil

	case activityMsg:
		m.refresh()

		return m, m.bridge.wait()

	case startedMsg:
		m.refresh()

		return m, nil

	case downloadDoneMsg:
		m.downloading = false
		m.refresh()

		return m, nil
	}

	return m.updateInput(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.session.Player().Stop()

		return m, tea.Quit

	case key.Matches(msg, m.keys.TextView):
		return m.switchView(session.ViewText)

	case key.Matches(msg, m.keys.UploadView):
		return m.switchView(session.ViewUpload)

	case key.Matches(msg, m.keys.SwitchView):
		return m.switchView(otherView(m.snapshot.View))

	case key.Matches(msg, m.keys.Generate):
		_ = m.session.Generate()

	case key.Matches(msg, m.keys.Play):
		_, _ = m.session.Play()

	case key.Matches(msg, m.keys.Pause):
		_, _ = m.session.TogglePause()

	case key.Matches(msg, m.keys.Stop):
		m.session.Stop()

	case key.Matches(msg, m.keys.Download):
		return m.startDownload()

	case key.Matches(msg, m.keys.Voice):
		m.session.NextVoice()

	case key.Matches(msg, m.keys.Rate):
		m.session.NextRate()

	case key.Matches(msg, m.keys.Pitch):
		m.session.NextPitch()

	case key.Matches(msg, m.keys.RemoteVoice):
		m.session.NextRemoteVoice()

	case key.Matches(msg, m.keys.RemoteModel):
		m.session.NextRemoteModel()

	case m.snapshot.View == session.ViewUpload && msg.Paste:
		m.loadFile(m.session.DropFile(string(msg.Runes)))

	case m.snapshot.View == session.ViewUpload && key.Matches(msg, m.keys.Browse):
		m.loadFile(m.session.BrowseFile(m.path.Value()))

	default:
		return m.updateInput(msg)
	}

	m.refresh()

	return m, nil
}

func (m Model) switchView(target session.View) (tea.Model, tea.Cmd) {
	_ = m.session.SwitchView(target)

	var cmd tea.Cmd
	if target == session.ViewUpload {
		m.editor.Blur()
		cmd = m.path.Focus()
	} else {
		m.path.Blur()
		cmd = m.editor.Focus()
	}

	m.refresh()

	return m, cmd
}

func (m Model) startDownload() (tea.Model, tea.Cmd) {
	if m.downloading {
		return m, nil
	}

	m.downloading = true
	sess := m.session
	ctx := m.ctx

	return m, func() tea.Msg {
		location, err := sess.Download(ctx)

		return downloadDoneMsg{location: location, err: err}
	}
}

func (m *Model) loadFile(err error) {
	if err != nil {
		return
	}

	m.path.Reset()
	m.editor.SetValue(m.session.Snapshot().Text)
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.snapshot.View == session.ViewUpload {
		m.path, cmd = m.path.Update(msg)

		return m, cmd
	}

	m.editor, cmd = m.editor.Update(msg)

	if value := m.editor.Value(); value != m.snapshot.Text {
		m.session.SetText(value)
		m.snapshot.Text = value
	}

	return m, cmd
}

func (m *Model) refresh() {
	m.snapshot = m.session.Snapshot()
}

// View renders the front-end.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.snapshot.View == session.ViewUpload {
		b.WriteString(m.renderUpload())
	} else {
		b.WriteString(m.editor.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderSettings())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n\n")
	b.WriteString(renderStatus(m.snapshot.Status))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) renderHeader() string {
	tabs := make([]string, 0, 2)

	for _, view := range []session.View{session.ViewText, session.ViewUpload} {
		if view == m.snapshot.View {
			tabs = append(tabs, activeTabStyle.Render(view.String()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(view.String()))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render(appTitle), "  ", strings.Join(tabs, " "))
}

func (m Model) renderUpload() string {
	lines := []string{m.path.View()}

	upload := m.snapshot.Upload
	if upload.FileName != "" {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("Loaded: %s (%s)",
			upload.FileName, fileutil.FormatFileSize(int64(len(upload.Content))))))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderSettings() string {
	s := m.snapshot

	return labelStyle.Render(fmt.Sprintf(
		"Voice: %s (%d available)   Rate: %.2fx   Pitch: %.2f   Remote: %s / %s",
		s.VoiceLabel, s.VoiceCount, s.Rate, s.Pitch, s.RemoteVoice, s.RemoteModel,
	))
}

func (m Model) renderControls() string {
	state := fmt.Sprintf("State: %s", m.snapshot.State)
	if m.downloading {
		state += "   downloading..."
	}

	controls := "Play  Pause  Stop  Download"
	if m.snapshot.ControlsEnabled {
		controls = enabledStyle.Render(controls)
	} else {
		controls = disabledStyle.Render(controls)
	}

	return labelStyle.Render(state) + "   " + controls
}

func otherView(v session.View) session.View {
	if v == session.ViewUpload {
		return session.ViewText
	}

	return session.ViewUpload
}

// Run starts the front-end on the terminal and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session) error {
	program := tea.NewProgram(NewModel(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := program.Run()
	if err != nil {
		return fmt.Errorf("terminal front-end: %w", err)
	}

	return nil
}
