package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/voice"
	"github.com/dgnsrekt/shadow/ui"
)

var (
	sessionID   uint
	voiceSpecs  []string
	presetRef   string
	delayRatio  float64
	noRecord    bool
	plainOutput bool

	playCmd = &cobra.Command{
		Use:   "play [LESSON]",
		Short: "Download a lesson and practice it",
		Long: paragraph(fmt.Sprintf("\nSynthesizes every sentence of a lesson for each voice, then plays them back with a %s after each clip. LESSON is a .json or .xml file or an http(s) URL.",
			keyword("pause to repeat"))),
		Example: paragraph("shadow play lesson.json\nshadow play lesson.json --voice jake:0.9:2 --voice rachel\nshadow play --session 3"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runPlay,
	}

	downloadCmd = &cobra.Command{
		Use:   "download LESSON",
		Short: "Synthesize a lesson without playing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownload,
	}
)

func init() {
	for _, c := range []*cobra.Command{playCmd, downloadCmd} {
		c.Flags().StringArrayVar(&voiceSpecs, "voice", nil, "voice to play, as voiceID[:speed[:repeat]] (repeatable)")
		c.Flags().StringVar(&presetRef, "preset", "", "session preset id or name")
	}
	playCmd.Flags().UintVar(&sessionID, "session", 0, "replay a stored session")
	playCmd.Flags().Float64Var(&delayRatio, "ratio", 0, "pause after each clip as a multiple of its length")
	playCmd.Flags().BoolVar(&noRecord, "no-record", false, "do not start the recorder")
	playCmd.Flags().BoolVar(&plainOutput, "plain", false, "print progress lines instead of the TUI")
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && !plainOutput
}

// plan is the voice configuration of one run.
type plan struct {
	voices  []voice.Applied
	modelID string
	ratio   float64
	source  string
}

// resolvePlan picks the voices in order of precedence: --voice flags,
// --preset, the config file, the first saved preset, the built-in preset.
func (a *app) resolvePlan() (plan, error) {
	p := plan{modelID: a.cfg.ModelID, ratio: a.cfg.FollowDelayRatio}

	if len(voiceSpecs) > 0 {
		for _, spec := range voiceSpecs {
			v, err := voice.ParseApplied(spec, a.registry)
			if err != nil {
				return plan{}, err
			}
			p.voices = append(p.voices, v)
		}
		p.source = "flags"
		return p, nil
	}

	if presetRef != "" {
		sp, err := a.presets.Find(presetRef)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %s", err, presetRef)
		}
		return fromPreset(sp, "preset "+sp.Name), nil
	}

	configured, err := a.cfg.AppliedVoices(a.registry)
	if err != nil {
		return plan{}, err
	}
	if len(configured) > 0 {
		p.voices = configured
		p.source = "config"
		return p, nil
	}

	presets, err := a.presets.List()
	if err != nil {
		return plan{}, err
	}
	return fromPreset(presets[0], "preset "+presets[0].Name), nil
}

func fromPreset(sp voice.SessionPreset, source string) plan {
	return plan{
		voices:  sp.Voices,
		modelID: sp.ModelID,
		ratio:   sp.FollowDelayRatio,
		source:  source,
	}
}

// lessonFor loads the lesson argument, or the stored lesson of --session.
func (a *app) lessonFor(ctx context.Context, args []string) (*lesson.Lesson, uint, error) {
	if sessionID != 0 {
		repo, err := a.openSessions()
		if err != nil {
			return nil, 0, err
		}
		l, err := repo.Lesson(ctx, nil, sessionID)
		if err != nil {
			return nil, 0, fmt.Errorf("session %d: %w", sessionID, err)
		}
		return l, sessionID, nil
	}
	if len(args) == 0 {
		return nil, 0, errors.New("missing lesson: pass a file or URL, or --session")
	}
	l, err := lesson.Load(ctx, args[0])
	if err != nil {
		return nil, 0, err
	}
	return l, 0, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	l, _, err := a.lessonFor(cmd.Context(), args)
	if err != nil {
		return err
	}
	p, err := a.resolvePlan()
	if err != nil {
		return err
	}
	id, err := a.download(cmd.Context(), l, p, 0)
	if err != nil {
		return err
	}
	fmt.Printf("Session %d ready: %s\n", id, l.Title)
	if t, ok := a.synthesisTotals(cmd.Context()); ok {
		fmt.Println(dimStyle.Render(fmt.Sprintf("%s from cache, %s synthesized",
			english.Plural(int(t.CacheHits), "clip", "clips"), humanize.Comma(t.Calls-t.Errors))))
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	l, stored, err := a.lessonFor(ctx, args)
	if err != nil {
		return err
	}
	p, err := a.resolvePlan()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ratio") {
		p.ratio = delayRatio
	}

	id, err := a.download(ctx, l, p, stored)
	if err != nil {
		return err
	}

	command := a.cfg.RecordCommand
	if noRecord {
		command = ""
	}
	return a.runSession(ctx, session.Config{
		SessionID:        id,
		Lesson:           l,
		Voices:           p.voices,
		ModelID:          p.modelID,
		FollowDelayRatio: p.ratio,
		LeadIn:           a.cfg.LeadIn,
	}, command)
}

// download fills the cache for l, showing progress. stored reuses an
// existing session id.
func (a *app) download(ctx context.Context, l *lesson.Lesson, p plan, stored uint) (uint, error) {
	orch, err := a.openDownloader()
	if err != nil {
		return 0, err
	}
	if stored != 0 {
		orch.Attach(l, stored)
	}
	log.Info("downloading lesson", "title", l.Title, "voices", len(p.voices), "source", p.source)

	if !isTerminal() {
		return orch.DownloadAll(ctx, l, p.voices, p.modelID, func(pct int) {
			fmt.Printf("download %3d%%\n", pct)
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	progress := make(chan int, 1)
	result := make(chan ui.DownloadResult, 1)
	go func() {
		id, err := orch.DownloadAll(ctx, l, p.voices, p.modelID, func(pct int) {
			// Only the latest value matters to the progress bar.
			select {
			case <-progress:
			default:
			}
			progress <- pct
		})
		close(progress)
		result <- ui.DownloadResult{SessionID: id, Err: err}
	}()

	m, err := ui.NewDownloadProgram(l.Title, l.Len(), progress, result).Run()
	if err != nil {
		return 0, fmt.Errorf("unable to run tui program: %w", err)
	}
	res, ok := ui.DownloadOutcome(m)
	if !ok {
		cancel()
		res = <-result
		if res.Err == nil {
			return res.SessionID, nil
		}
		return 0, context.Canceled
	}
	return res.SessionID, res.Err
}

// runSession plays a downloaded session in the TUI, or with log lines when
// stdout is not a terminal.
func (a *app) runSession(ctx context.Context, sc session.Config, recordCommand string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	repo, err := a.openSessions()
	if err != nil {
		return err
	}
	rec, err := a.recorder(recordCommand, sc.SessionID)
	if err != nil {
		return err
	}
	player, closePlayer := a.player()
	defer closePlayer() //nolint:errcheck

	opts := []session.Option{
		session.WithRecorder(rec),
		session.WithCompleter(repo),
		session.WithRegistry(a.registry),
		session.WithLogger(a.logger.With("component", "session")),
	}

	if !isTerminal() {
		opts = append(opts, session.WithObserver(printEvent(sc)))
		err := session.New(sc, player, store, opts...).Run(ctx)
		if errors.Is(err, session.ErrStopped) {
			return nil
		}
		return err
	}

	events := make(chan session.Event, 64)
	uiDone := make(chan struct{})
	opts = append(opts, session.WithObserver(func(ev session.Event) {
		select {
		case events <- ev:
		case <-uiDone:
		}
	}))
	sched := session.New(sc, player, store, opts...)

	result := make(chan error, 1)
	finished := make(chan struct{})
	var runErr error
	go func() {
		defer close(finished)
		runErr = sched.Run(ctx)
		close(events)
		result <- runErr
	}()

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.EnableMouse = a.cfg.Mouse || mouse
	uiCfg.Automation = sc.Automation

	_, tuiErr := ui.NewProgram(uiCfg, sched, events, result).Run()
	close(uiDone)
	_ = sched.Stop()
	<-finished

	if tuiErr != nil {
		return fmt.Errorf("unable to run tui program: %w", tuiErr)
	}
	if errors.Is(runErr, session.ErrStopped) {
		return nil
	}
	return runErr
}

// printEvent logs scheduler events as plain lines.
func printEvent(sc session.Config) func(session.Event) {
	total := strconv.Itoa(sc.Lesson.Len())
	return func(ev session.Event) {
		pos := fmt.Sprintf("%d/%s", ev.Position.Sentence+1, total)
		switch {
		case ev.Skipped:
			fmt.Printf("skip    %s voice %d: %v\n", pos, ev.Position.Voice+1, ev.Err)
		case ev.Phase == session.PhaseListening:
			fmt.Printf("listen  %s voice %d  %s\n", pos, ev.Position.Voice+1, sc.Lesson.Sentences[ev.Position.Sentence].English)
		case ev.Phase == session.PhaseWaiting:
			fmt.Printf("repeat  %s (%s)\n", pos, ev.Wait.Round(100*time.Millisecond))
		case ev.Phase == session.PhaseFinished && ev.Err != nil:
			fmt.Printf("stopped: %v\n", ev.Err)
		default:
			fmt.Println(ev.Phase)
		}
	}
}
