// Package ui provides the terminal interface for practice sessions and
// lesson downloads.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/session"
)

const statusMessageTimeout = time.Second * 3

// Controller is the part of the scheduler the UI drives.
type Controller interface {
	TogglePause() error
	Next() error
	Previous() error
	Stop() error
	Config() session.Config
}

type (
	eventMsg         session.Event
	eventsClosedMsg  struct{}
	sessionDoneMsg   struct{ err error }
	controlErrMsg    struct{ err error }
	statusMessageMsg string
	clearStatusMsg   struct{}
)

// NewProgram returns a Tea program that shows a running session. events
// must carry every scheduler event; result receives Run's return value.
func NewProgram(cfg Config, ctrl Controller, events <-chan session.Event, result <-chan error) *tea.Program {
	log.Debug("starting session ui", "automation", cfg.Automation, "mouse", cfg.EnableMouse)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newSessionModel(cfg, ctrl, events, result), opts...)
}

type sessionModel struct {
	cfg    Config
	ctrl   Controller
	lesson *lesson.Lesson
	events <-chan session.Event
	result <-chan error

	status   *statusDisplay
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	width, height   int
	showTranslation bool
	showWords       bool
	statusMessage   string
	quitting        bool
	done            bool
	err             error
}

func newSessionModel(cfg Config, ctrl Controller, events <-chan session.Event, result <-chan error) sessionModel {
	sc := ctrl.Config()
	return sessionModel{
		cfg:             cfg,
		ctrl:            ctrl,
		lesson:          sc.Lesson,
		events:          events,
		result:          result,
		status:          newStatusDisplay(sc.Lesson.Len(), sc.Voices),
		keys:            newKeyMap(),
		help:            help.New(),
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:           80,
		showTranslation: cfg.ShowTranslation,
		showWords:       cfg.ShowWords,
	}
}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func waitForResult(result <-chan error) tea.Cmd {
	return func() tea.Msg {
		return sessionDoneMsg{err: <-result}
	}
}

func control(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return controlErrMsg{err}
		}
		return nil
	}
}

func copySentence(s lesson.Sentence) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(clipboardText(s)); err != nil {
			return controlErrMsg{fmt.Errorf("unable to copy: %w", err)}
		}
		return statusMessageMsg("Copied!")
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), waitForResult(m.result), m.spinner.Tick)
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(msg.Width-4, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		ev := session.Event(msg)
		m.status.update(ev)
		if ev.Phase == session.PhaseListening && !ev.Skipped {
			m.applyVoiceToggles()
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, nil

	case sessionDoneMsg:
		m.done = true
		m.err = msg.err
		if m.quitting || m.cfg.Automation {
			return m, tea.Quit
		}
		return m, nil

	case controlErrMsg:
		log.Debug("session control failed", "err", msg.err)
		return m, m.flash(msg.err.Error())

	case statusMessageMsg:
		return m, m.flash(string(msg))

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *sessionModel) flash(text string) tea.Cmd {
	m.statusMessage = text
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// applyVoiceToggles switches the display to the current voice's settings.
func (m *sessionModel) applyVoiceToggles() {
	if v, ok := m.status.currentVoice(); ok {
		m.showTranslation = v.ShowTranslation
		m.showWords = v.ShowWords
	}
}

func (m sessionModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.done {
			return m, tea.Quit
		}
		m.quitting = true
		return m, control(m.ctrl.Stop)

	case m.done:
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		return m, control(m.ctrl.TogglePause)

	case key.Matches(msg, m.keys.Next):
		return m, control(m.ctrl.Next)

	case key.Matches(msg, m.keys.Previous):
		return m, control(m.ctrl.Previous)

	case key.Matches(msg, m.keys.Translation):
		m.showTranslation = !m.showTranslation

	case key.Matches(msg, m.keys.Words):
		m.showWords = !m.showWords

	case key.Matches(msg, m.keys.Copy):
		if s, ok := m.currentSentence(); ok {
			return m, copySentence(s)
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m sessionModel) currentSentence() (lesson.Sentence, bool) {
	i := m.status.position.Sentence
	if m.lesson == nil || i < 0 || i >= len(m.lesson.Sentences) {
		return lesson.Sentence{}, false
	}
	return m.lesson.Sentences[i], true
}

func (m sessionModel) View() string {
	width := m.width
	if m.cfg.MaxWidth > 0 && width > m.cfg.MaxWidth {
		width = m.cfg.MaxWidth
	}

	var b strings.Builder
	title := "Untitled"
	if m.lesson != nil && m.lesson.Title != "" {
		title = m.lesson.Title
	}
	b.WriteString(titleStyle.Render(title))
	if m.ctrl.Config().Automation {
		b.WriteString(grayStyle.Render("  automated"))
	}
	b.WriteString("\n\n")

	switch {
	case m.done:
		b.WriteString(m.summary())
	case !m.status.started || m.status.phase == session.PhaseWaitingForRecorder:
		b.WriteString(m.spinner.View() + " Waiting for recorder…")
	case m.status.phase == session.PhaseStarting:
		b.WriteString(m.spinner.View() + " Get ready…")
	default:
		if s, ok := m.currentSentence(); ok {
			b.WriteString(renderSentence(s, width, m.showTranslation, m.showWords))
		}
	}
	b.WriteString("\n\n")

	if !m.done {
		b.WriteString(m.progress.ViewAs(m.status.progress()))
		b.WriteString(" " + grayStyle.Render(progressLabel(m.status.position, m.status.total)))
		b.WriteString("\n")
		b.WriteString(m.status.compactStatus())
		if m.cfg.ShowPhase {
			b.WriteString(grayStyle.Render(fmt.Sprintf("  [%d]", m.status.phase)))
		}
		b.WriteString("\n")
	}
	if line := m.status.errorLine(width); line != "" {
		b.WriteString(line + "\n")
	}
	if m.statusMessage != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render(m.statusMessage) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m sessionModel) summary() string {
	var ru *session.RecorderUnavailableError
	switch {
	case m.err == nil:
		return fmt.Sprintf("Session complete: %d sentences. Press q to quit.", m.status.total)
	case errors.As(m.err, &ru):
		return errorStyle.Render("The recorder could not start: ") + ru.Err.Error()
	case errors.Is(m.err, session.ErrStopped):
		return "Session stopped."
	default:
		return errorStyle.Render("Session ended: ") + m.err.Error()
	}
}
