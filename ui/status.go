package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// statusDisplay renders the scheduler state for the status bar.
type statusDisplay struct {
	phase     session.Phase
	position  session.Position
	total     int
	voices    []voice.Applied
	wait      time.Duration
	clip      time.Duration
	skipped   int
	errorText string
	started   bool
}

func newStatusDisplay(total int, voices []voice.Applied) *statusDisplay {
	return &statusDisplay{total: total, voices: voices}
}

// update applies a scheduler event.
func (s *statusDisplay) update(ev session.Event) {
	s.started = true
	s.position = ev.Position
	if ev.Skipped {
		s.skipped++
		return
	}
	s.phase = ev.Phase
	s.wait = ev.Wait
	if ev.Clip > 0 {
		s.clip = ev.Clip
	}
	switch {
	case ev.Err != nil && ev.Phase == session.PhaseFinished:
		s.errorText = ev.Err.Error()
	case ev.Phase != session.PhaseFinished:
		s.errorText = ""
	}
}

// progress is the share of sentences already passed.
func (s *statusDisplay) progress() float64 {
	if s.total <= 0 {
		return 0
	}
	if s.phase == session.PhaseFinished && s.errorText == "" {
		return 1
	}
	return float64(s.position.Sentence) / float64(s.total)
}

func (s *statusDisplay) currentVoice() (voice.Applied, bool) {
	if s.position.Voice < 0 || s.position.Voice >= len(s.voices) {
		return voice.Applied{}, false
	}
	return s.voices[s.position.Voice], true
}

// compactStatus returns a one-line summary for the status bar.
func (s *statusDisplay) compactStatus() string {
	if !s.started {
		return ""
	}

	status := lipgloss.NewStyle().Foreground(phaseColor(s.phase)).
		Render(fmt.Sprintf("%s %s", phaseIcon(s.phase), s.phase))

	if s.total > 0 && s.phase != session.PhaseFinished {
		counter := fmt.Sprintf(" %d/%d", s.position.Sentence+1, s.total)
		if v, ok := s.currentVoice(); ok {
			counter += fmt.Sprintf(" · %s", voiceLabel(v))
			if v.Repeat > 1 {
				counter += fmt.Sprintf(" %d/%d", s.position.Repeat+1, v.Repeat)
			}
		}
		status += grayStyle.Render(counter)
	}
	if s.phase == session.PhaseWaiting && s.wait > 0 {
		status += grayStyle.Render(" · repeat now (" + formatDuration(s.wait) + ")")
	}
	if s.skipped > 0 {
		status += warnStyle.Render(fmt.Sprintf(" · %d skipped", s.skipped))
	}
	return status
}

// errorLine returns the last error truncated to width.
func (s *statusDisplay) errorLine(width int) string {
	if s.errorText == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	return errorStyle.Render("Error: " + truncate.StringWithTail(s.errorText, uint(width-8), ellipsis)) //nolint:gosec
}

func voiceLabel(v voice.Applied) string {
	name := v.Name
	if name == "" {
		name = v.VoiceID
	}
	if v.Speed != 1 {
		name += fmt.Sprintf(" %.2gx", v.Speed)
	}
	return name
}

func phaseColor(p session.Phase) lipgloss.Color {
	switch p {
	case session.PhaseListening:
		return lipgloss.Color("#00FF00")
	case session.PhaseWaiting:
		return lipgloss.Color("#00AAFF")
	case session.PhasePaused:
		return lipgloss.Color("#FFFF00")
	case session.PhaseStarting, session.PhaseWaitingForRecorder:
		return lipgloss.Color("#888888")
	case session.PhaseFinished:
		return lipgloss.Color("#FF8800")
	default:
		return lipgloss.Color("#666666")
	}
}

func phaseIcon(p session.Phase) string {
	switch p {
	case session.PhaseListening:
		return "▶"
	case session.PhaseWaiting:
		return "🎙"
	case session.PhasePaused:
		return "⏸"
	case session.PhaseStarting, session.PhaseWaitingForRecorder:
		return "⟳"
	case session.PhaseFinished:
		return "■"
	default:
		return "○"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// progressLabel returns "sentence n of m".
func progressLabel(pos session.Position, total int) string {
	if total == 0 {
		return "no sentences"
	}
	n := pos.Sentence + 1
	if n > total {
		n = total
	}
	return strings.TrimSpace(fmt.Sprintf("sentence %d of %d", n, total))
}
