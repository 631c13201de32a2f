package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	cfg   session.Config
}

func (c *fakeController) record(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	return nil
}

func (c *fakeController) TogglePause() error     { return c.record("pause") }
func (c *fakeController) Next() error            { return c.record("next") }
func (c *fakeController) Previous() error        { return c.record("previous") }
func (c *fakeController) Stop() error            { return c.record("stop") }
func (c *fakeController) Config() session.Config { return c.cfg }

func testLesson() *lesson.Lesson {
	return &lesson.Lesson{
		Title: "Greetings",
		Sentences: []lesson.Sentence{
			{Index: 1, English: "Good morning.", Korean: "좋은 아침.", Words: []lesson.Word{{Term: "morning", Meaning: "아침", Difficulty: 1}}},
			{Index: 2, English: "See you later.", Korean: "나중에 봐."},
		},
	}
}

func testVoices() []voice.Applied {
	a := voice.NewApplied("VA", "Anna", 1, 2)
	b := voice.NewApplied("VB", "Ben", 0.8, 1)
	b.ShowTranslation = false
	return []voice.Applied{a, b}
}

func newTestModel() (sessionModel, *fakeController) {
	ctrl := &fakeController{cfg: session.Config{Lesson: testLesson(), Voices: testVoices()}}
	m := newSessionModel(Config{ShowTranslation: true, ShowWords: true, MaxWidth: 80}, ctrl, make(chan session.Event), make(chan error))
	return m, ctrl
}

func send(t *testing.T, m sessionModel, msg tea.Msg) (sessionModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(sessionModel)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return sm, cmd
}

func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestStatusDisplay(t *testing.T) {
	s := newStatusDisplay(2, testVoices())
	if s.compactStatus() != "" {
		t.Error("status should be empty before the first event")
	}

	s.update(session.Event{Phase: session.PhaseListening, Position: session.Position{Sentence: 1, Voice: 0, Repeat: 1}, Clip: time.Second})
	status := s.compactStatus()
	for _, want := range []string{"▶", "2/2", "Anna", "2/2"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q should contain %q", status, want)
		}
	}
	if got := s.progress(); got != 0.5 {
		t.Errorf("got progress %v, want 0.5", got)
	}

	s.update(session.Event{Phase: session.PhaseWaiting, Position: session.Position{Sentence: 1}, Wait: 1200 * time.Millisecond})
	if !strings.Contains(s.compactStatus(), "1.2s") {
		t.Errorf("waiting status should show the wait: %q", s.compactStatus())
	}

	s.update(session.Event{Phase: session.PhaseListening, Position: session.Position{Sentence: 1, Voice: 1}, Skipped: true})
	if s.phase != session.PhaseWaiting || !strings.Contains(s.compactStatus(), "1 skipped") {
		t.Errorf("skip should not change the phase: %v %q", s.phase, s.compactStatus())
	}

	s.update(session.Event{Phase: session.PhaseFinished, Position: session.Position{Sentence: 1}})
	if s.progress() != 1 {
		t.Errorf("finished session should show full progress, got %v", s.progress())
	}

	s.update(session.Event{Phase: session.PhaseFinished, Err: errors.New("boom")})
	if !strings.Contains(s.errorLine(40), "boom") {
		t.Errorf("error line should carry the error: %q", s.errorLine(40))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0:00"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1:30"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderSentence(t *testing.T) {
	s := testLesson().Sentences[0]

	full := renderSentence(s, 40, true, true)
	for _, want := range []string{"Good morning.", "좋은 아침.", "morning", "아침"} {
		if !strings.Contains(full, want) {
			t.Errorf("rendered sentence should contain %q:\n%s", want, full)
		}
	}

	bare := renderSentence(s, 40, false, false)
	if strings.Contains(bare, "좋은") || strings.Contains(bare, "●") {
		t.Errorf("hidden parts should not render:\n%s", bare)
	}

	if got := clipboardText(s); got != "Good morning.\n좋은 아침." {
		t.Errorf("got clipboard text %q", got)
	}
}

func TestSessionModel_Keys(t *testing.T) {
	m, ctrl := newTestModel()

	keys := []struct {
		msg  tea.KeyMsg
		want string
	}{
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "pause"},
		{tea.KeyMsg{Type: tea.KeyRight}, "next"},
		{tea.KeyMsg{Type: tea.KeyLeft}, "previous"},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, "stop"},
	}
	for _, k := range keys {
		var cmd tea.Cmd
		m, cmd = send(t, m, k.msg)
		if cmd == nil {
			t.Fatalf("%s: expected a command", k.want)
		}
		runCmd(cmd)
	}

	want := []string{"pause", "next", "previous", "stop"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Errorf("got calls %v, want %v", ctrl.calls, want)
	}
	if !m.quitting {
		t.Error("quit should wait for the session to stop")
	}

	_, cmd := send(t, m, sessionDoneMsg{err: session.ErrStopped})
	if _, ok := runCmd(cmd).(tea.QuitMsg); !ok {
		t.Error("model should quit once the stopped session returns")
	}
}

func TestSessionModel_Toggles(t *testing.T) {
	m, _ := newTestModel()

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if m.showTranslation {
		t.Error("t should hide the translation")
	}

	// Each voice brings its own display settings.
	m, _ = send(t, m, eventMsg(session.Event{Phase: session.PhaseListening, Position: session.Position{Voice: 1}}))
	if m.showTranslation || !m.showWords {
		t.Errorf("voice B settings not applied: translation=%v words=%v", m.showTranslation, m.showWords)
	}
	m, _ = send(t, m, eventMsg(session.Event{Phase: session.PhaseListening, Position: session.Position{Voice: 0}}))
	if !m.showTranslation {
		t.Error("voice A shows the translation")
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if !m.help.ShowAll {
		t.Error("? should expand the help")
	}
}

func TestSessionModel_View(t *testing.T) {
	m, _ := newTestModel()
	if !strings.Contains(m.View(), "Waiting for recorder") {
		t.Errorf("initial view should wait for the recorder:\n%s", m.View())
	}

	m, _ = send(t, m, eventMsg(session.Event{Phase: session.PhaseListening, Position: session.Position{Sentence: 1}}))
	view := m.View()
	if !strings.Contains(view, "See you later.") || !strings.Contains(view, "sentence 2 of 2") {
		t.Errorf("view should show the second sentence:\n%s", view)
	}

	m, _ = send(t, m, sessionDoneMsg{})
	if !strings.Contains(m.View(), "Session complete") {
		t.Errorf("finished view should show the summary:\n%s", m.View())
	}

	m, _ = send(t, m, sessionDoneMsg{err: &session.RecorderUnavailableError{Err: errors.New("no mic")}})
	if !strings.Contains(m.View(), "no mic") {
		t.Errorf("recorder failure should be shown:\n%s", m.View())
	}
}

func TestSessionModel_AutomationQuits(t *testing.T) {
	ctrl := &fakeController{cfg: session.Config{Lesson: testLesson(), Automation: true}}
	m := newSessionModel(Config{Automation: true}, ctrl, make(chan session.Event), make(chan error))

	_, cmd := send(t, m, sessionDoneMsg{})
	if _, ok := runCmd(cmd).(tea.QuitMsg); !ok {
		t.Error("automated sessions should quit when done")
	}
}

func TestDownloadModel(t *testing.T) {
	progressCh := make(chan int)
	result := make(chan DownloadResult)
	var m tea.Model = newDownloadModel("Greetings", 2, progressCh, result)

	m, _ = m.Update(downloadProgressMsg(50))
	m, _ = m.Update(downloadProgressMsg(40))
	if dm := m.(downloadModel); dm.percent != 50 {
		t.Errorf("got %d%%, progress must not move backwards", dm.percent)
	}
	if _, ok := DownloadOutcome(m); ok {
		t.Error("outcome should not be ready yet")
	}

	m, cmd := m.Update(downloadDoneMsg{Err: tts.NewSynthesisError(401, "invalid_api_key", nil)})
	if _, ok := runCmd(cmd).(tea.QuitMsg); !ok {
		t.Error("download program should quit when done")
	}
	res, ok := DownloadOutcome(m)
	if !ok || !tts.IsAuthError(res.Err) {
		t.Errorf("got %+v ok=%v", res, ok)
	}
	if !strings.Contains(m.View(), "Permission denied") {
		t.Errorf("auth failure should show the permission message:\n%s", m.View())
	}
}
