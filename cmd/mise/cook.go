package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/mise/internal/conversation"
	"github.com/hammamikhairi/mise/internal/display"
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/engine"
	"github.com/hammamikhairi/mise/internal/graph"
	"github.com/hammamikhairi/mise/internal/layout"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/session"
	"github.com/hammamikhairi/mise/internal/sound"
	"github.com/hammamikhairi/mise/internal/storage"
	"github.com/hammamikhairi/mise/internal/timer"
	"github.com/hammamikhairi/mise/internal/voice"
)

func newCookCmd(a *app) *cobra.Command {
	var (
		noSound bool
		tick    time.Duration
		vo      voiceOptions
	)
	cmd := &cobra.Command{
		Use:   "cook <recipe>",
		Short: "Cook a recipe interactively with live step timers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tick") {
				a.cfg.TickInterval = tick
			}
			if noSound {
				a.cfg.Sound = false
			}
			return a.cook(cmd.Context(), args[0], vo)
		},
	}
	cmd.Flags().BoolVar(&noSound, "no-sound", false, "do not beep when a timer finishes")
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "how often running timers count down")
	cmd.Flags().BoolVar(&vo.enabled, "voice", false, "also take spoken commands via local Whisper speech-to-text")
	cmd.Flags().StringVar(&vo.whisperBin, "whisper-bin", "whisper-cli", "path to the whisper.cpp CLI binary")
	cmd.Flags().StringVar(&vo.model, "whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	cmd.Flags().IntVar(&vo.recordSecs, "record-secs", 2, "seconds per voice recording chunk")
	return cmd
}

type voiceOptions struct {
	enabled    bool
	whisperBin string
	model      string
	recordSecs int
}

const voiceTempDir = ".mise-stt"

// startVoice launches the speech listener and returns its command channel,
// or nil when voice input is off.
func (a *app) startVoice(ctx context.Context, vo voiceOptions) (<-chan string, error) {
	if !vo.enabled {
		return nil, nil
	}
	if _, err := os.Stat(vo.model); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s", vo.model)
	}
	if err := os.MkdirAll(voiceTempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", voiceTempDir, err)
	}
	ear := voice.NewEar(vo.whisperBin, vo.model, voiceTempDir, a.log,
		voice.WithRecordDuration(time.Duration(vo.recordSecs)*time.Second),
	)
	go ear.Run(ctx)
	a.log.Info("voice input enabled (bin=%s, model=%s, chunk=%ds)", vo.whisperBin, vo.model, vo.recordSecs)
	return ear.C(), nil
}

func (a *app) cook(parent context.Context, recipeID string, vo voiceOptions) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt)
	defer cancel()

	r, err := a.recipes.Get(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("recipe %q: %s", recipeID, describe(err))
	}
	l, err := layout.Compute(graph.New(r.Steps))
	if err != nil {
		return fmt.Errorf("recipe %q cannot be cooked: %s", recipeID, describe(err))
	}

	spoken, err := a.startVoice(ctx, vo)
	if err != nil {
		return err
	}

	var eng *engine.Engine
	ui := display.NewUI(
		func(ctx context.Context) ([]domain.SessionSnapshot, error) { return eng.Snapshots(ctx) },
		func(_, stepID string) string { return r.Label(stepID) },
	)
	notifier := conversation.NewCLINotifier(a.log, ui.Printf)
	beeper := sound.Open(a.cfg.Sound, a.log)

	eng = engine.New(a.recipes, storage.NewMemoryStore(a.log), a.log,
		engine.WithTickInterval(a.cfg.TickInterval),
		engine.WithExpiry(func(r *domain.Recipe) domain.ExpiryHandler {
			return domain.ExpiryHandlers(conversation.TimerAlert(notifier, r, a.log), beeper)
		}),
	)

	sess, err := eng.StartSession(ctx, recipeID, session.WithResource(beeper))
	if err != nil {
		beeper.Close()
		return fmt.Errorf("starting session: %s", describe(err))
	}
	defer func() {
		if err := eng.Shutdown(context.Background()); err != nil {
			a.log.Error("shutdown: %v", err)
		}
	}()

	watcher := timer.NewWatcher(eng, a.recipes, notifier, a.log,
		timer.WithWatchInterval(a.cfg.WatchInterval),
	)
	go watcher.Run(ctx)

	c := &cliApp{
		recipe:   r,
		layout:   l,
		sess:     sess,
		parser:   conversation.NewKeywordParser(a.log),
		notifier: notifier,
		log:      a.log,
		out:      ui,
		voice:    spoken,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		c.run(ctx, ui.InputChan())
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		a.log.Error("display: %v", err)
	}
	cancel()
	return nil
}

// printer is the part of display.UI the REPL writes to.
type printer interface {
	PrintChat(text string)
	PrintStep(text string)
	PrintInstruction(text string)
	PrintHint(text string)
	PrintUrgent(text string)
	PrintBlock(block string)
	PrintVoice(text string)
}

var _ printer = (*display.UI)(nil)

type cliApp struct {
	recipe   *domain.Recipe
	layout   layout.Layout
	sess     *session.Session
	parser   domain.IntentParser
	notifier domain.Notifier
	log      *logger.Logger
	out      printer
	voice    <-chan string // nil without --voice
}

func (a *cliApp) run(ctx context.Context, input <-chan string) {
	a.out.PrintChat(fmt.Sprintf("Let's cook %s. %d steps, up to %d at once.",
		a.recipe.Title, len(a.recipe.Steps), a.layout.Width()))
	a.status()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case <-a.sess.Done():
			return
		case line, ok = <-input:
			if !ok {
				return
			}
		case line = <-a.voice:
			a.out.PrintVoice(line)
		}

		intent, err := a.parser.Parse(ctx, line)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("intent: %s (step=%q minutes=%g)", intent.Type, intent.StepRef, intent.Minutes)
		if !a.handleIntent(ctx, intent) {
			return
		}
	}
}

// handleIntent applies one intent. It returns false when the cook quits.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentQuit:
		a.out.PrintChat("See you next time.")
		return false
	case domain.IntentHelp:
		a.showHelp()
		return true
	case domain.IntentSteps:
		a.out.PrintBlock(display.RenderTracks(a.recipe, a.layout, a.sess.Statuses(), a.sess.Available()))
		return true
	case domain.IntentStatus:
		a.status()
		return true
	case domain.IntentUnknown:
		a.out.PrintHint(fmt.Sprintf("Didn't catch %q. Type 'help' for commands.", intent.Raw))
		return true
	}

	id, err := a.pickStep(intent)
	if err != nil {
		a.out.PrintHint(describe(err))
		return true
	}

	switch intent.Type {
	case domain.IntentComplete:
		a.complete(ctx, id)
	case domain.IntentUndo:
		a.undo(id)
	case domain.IntentStartTimer:
		a.startTimer(id, intent.Minutes)
	case domain.IntentPauseTimer:
		a.timerOp(id, "paused", a.sess.PauseTimer)
	case domain.IntentResumeTimer:
		a.timerOp(id, "resumed", a.sess.ResumeTimer)
	case domain.IntentResetTimer:
		a.timerOp(id, "reset", a.sess.ResetTimer)
	}
	return true
}

var errWhichStep = errors.New("which step?")

// pickStep resolves the step an intent refers to. Without a reference it
// falls back to the only candidate: the single available step for "done",
// the single available step that declares a timer for "timer", or the
// single existing timer for the other timer commands.
func (a *cliApp) pickStep(intent *domain.Intent) (string, error) {
	if intent.StepRef != "" {
		return engine.ResolveStep(a.recipe, intent.StepRef)
	}

	var candidates []string
	switch intent.Type {
	case domain.IntentComplete:
		candidates = a.sess.Available()
	case domain.IntentStartTimer:
		for _, id := range a.sess.Available() {
			if s := a.recipe.Step(id); s != nil && s.HasTimer() {
				candidates = append(candidates, id)
			}
		}
	case domain.IntentPauseTimer, domain.IntentResumeTimer, domain.IntentResetTimer:
		for _, s := range a.recipe.Steps {
			if _, ok := a.sess.Timer(s.ID); ok {
				candidates = append(candidates, s.ID)
			}
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w add a step number, e.g. '%s 2'", errWhichStep, verb(intent.Type))
	}
	return "", fmt.Errorf("%w one of %s", errWhichStep, a.labels(candidates))
}

func verb(t domain.IntentType) string {
	switch t {
	case domain.IntentComplete:
		return "done"
	case domain.IntentUndo:
		return "undo"
	case domain.IntentStartTimer:
		return "timer"
	case domain.IntentPauseTimer:
		return "pause"
	case domain.IntentResumeTimer:
		return "resume"
	default:
		return "reset"
	}
}

func (a *cliApp) complete(ctx context.Context, id string) {
	before := a.sess.Available()
	if err := a.sess.MarkStep(id, domain.StepCompleted); err != nil {
		a.out.PrintHint(describe(err))
		return
	}
	a.out.PrintStep(fmt.Sprintf("%s done.", a.recipe.Label(id)))

	if a.sess.IsComplete() {
		_ = a.notifier.Notify(ctx, "Every step is done. Enjoy your meal! Type 'quit' to leave.")
		return
	}

	var unlocked []string
	for _, s := range a.sess.Available() {
		if !slices.Contains(before, s) {
			unlocked = append(unlocked, s)
		}
	}
	for _, s := range unlocked {
		a.announce(s, "Now ready")
	}
}

func (a *cliApp) undo(id string) {
	st, err := a.sess.StepStatus(id)
	if err != nil {
		a.out.PrintHint(describe(err))
		return
	}
	if st != domain.StepCompleted {
		a.out.PrintHint(fmt.Sprintf("%s isn't done yet.", a.recipe.Label(id)))
		return
	}
	if _, err := a.sess.CycleStatus(id); err != nil {
		a.out.PrintHint(describe(err))
		return
	}
	a.out.PrintStep(fmt.Sprintf("%s reopened.", a.recipe.Label(id)))
}

func (a *cliApp) startTimer(id string, minutes float64) {
	var err error
	if minutes > 0 {
		err = a.sess.StartTimer(id, minutes)
	} else {
		err = a.sess.StartStepTimer(id)
	}

	var badTimer *domain.InvalidTimerDurationError
	if errors.As(err, &badTimer) && minutes <= 0 {
		a.out.PrintHint(fmt.Sprintf("%s has no timer of its own. Try 'timer %s 5'.",
			a.recipe.Label(id), strings.TrimPrefix(a.recipe.Label(id), "Step ")))
		return
	}
	if err != nil {
		a.out.PrintHint(describe(err))
		return
	}

	t, _ := a.sess.Timer(id)
	a.out.PrintStep(fmt.Sprintf("Timer for %s started: %s.", a.recipe.Label(id), t.Remaining()))
}

func (a *cliApp) timerOp(id, done string, op func(string) error) {
	if err := op(id); err != nil {
		a.out.PrintHint(describe(err))
		return
	}
	if _, ok := a.sess.Timer(id); !ok {
		a.out.PrintHint(fmt.Sprintf("%s has no timer.", a.recipe.Label(id)))
		return
	}
	a.out.PrintStep(fmt.Sprintf("Timer for %s %s.", a.recipe.Label(id), done))
}

func (a *cliApp) status() {
	a.out.PrintBlock(display.RenderSession(a.recipe, a.sess.Snapshot()))
}

func (a *cliApp) announce(id, prefix string) {
	s := a.recipe.Step(id)
	if s == nil {
		return
	}
	head := fmt.Sprintf("%s: %s", prefix, a.recipe.Label(id))
	if s.DurationMinutes > 0 {
		head += fmt.Sprintf(" (~%gm)", s.DurationMinutes)
	}
	a.out.PrintStep(head)
	a.out.PrintInstruction(s.Text)
	if notes := display.StepNotes(*s, true); notes != "" {
		a.out.PrintHint(notes)
	}
}

func (a *cliApp) labels(ids []string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.recipe.Label(id))
	}
	return strings.Join(out, ", ")
}

func (a *cliApp) showHelp() {
	a.out.PrintBlock(`  Commands:
    done N            mark step N complete (a bare number works too)
    undo N            reopen a completed step
    timer N [min]     start a timer, from the step's time or [min] minutes
    pause N           pause step N's timer
    resume N          resume it
    reset N           put it back to its full time, paused
    steps             show the steps laid out by what can run together
    status            what's ready now and what's waiting
    quit              leave`)
}
