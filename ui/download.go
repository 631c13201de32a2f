package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/shadow/internal/tts"
)

// DownloadResult is what a finished download reports.
type DownloadResult struct {
	SessionID uint
	Err       error
}

type (
	downloadProgressMsg int
	downloadDoneMsg     DownloadResult
)

// NewDownloadProgram shows download progress for a lesson. progress carries
// percentages; result receives the outcome exactly once. The program quits
// when the download ends.
func NewDownloadProgram(title string, total int, progressCh <-chan int, result <-chan DownloadResult) *tea.Program {
	return tea.NewProgram(newDownloadModel(title, total, progressCh, result))
}

type downloadModel struct {
	title      string
	total      int
	progressCh <-chan int
	result     <-chan DownloadResult

	spinner  spinner.Model
	progress progress.Model
	percent  int
	done     bool
	res      DownloadResult
}

func newDownloadModel(title string, total int, progressCh <-chan int, result <-chan DownloadResult) downloadModel {
	return downloadModel{
		title:      title,
		total:      total,
		progressCh: progressCh,
		result:     result,
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// DownloadOutcome extracts the result from the model returned by the
// program's Run. ok is false if the program quit before the download ended.
func DownloadOutcome(m tea.Model) (res DownloadResult, ok bool) {
	dm, isDownload := m.(downloadModel)
	if !isDownload || !dm.done {
		return DownloadResult{}, false
	}
	return dm.res, true
}

func waitForProgress(ch <-chan int) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return downloadProgressMsg(p)
	}
}

func waitForDownload(ch <-chan DownloadResult) tea.Cmd {
	return func() tea.Msg {
		return downloadDoneMsg(<-ch)
	}
}

func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.progressCh), waitForDownload(m.result), m.spinner.Tick)
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-10, 60)
	case downloadProgressMsg:
		// Progress never moves backwards.
		if int(msg) > m.percent {
			m.percent = int(msg)
		}
		return m, waitForProgress(m.progressCh)
	case downloadDoneMsg:
		m.done = true
		m.res = DownloadResult(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m downloadModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	if m.done {
		if m.res.Err != nil {
			b.WriteString(downloadError(m.res.Err) + "\n")
		} else {
			b.WriteString(fmt.Sprintf("Downloaded %d sentences (session %d).\n", m.total, m.res.SessionID))
		}
		return b.String()
	}

	b.WriteString(m.spinner.View() + " Preparing audio ")
	b.WriteString(m.progress.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n")
	return b.String()
}

// downloadError renders a classified synthesis error for the user.
func downloadError(err error) string {
	return errorStyle.Render("Download failed: ") + tts.Classify(err).UserMessage()
}
