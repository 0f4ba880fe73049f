package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hammamikhairi/mise/internal/conversation"
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
	"github.com/hammamikhairi/mise/internal/layout"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/session"
)

// capturePrinter records everything the REPL prints.
type capturePrinter struct {
	mu    sync.Mutex
	lines []string
}

func (p *capturePrinter) add(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, s)
}

func (p *capturePrinter) PrintChat(s string)        { p.add(s) }
func (p *capturePrinter) PrintStep(s string)        { p.add(s) }
func (p *capturePrinter) PrintInstruction(s string) { p.add(s) }
func (p *capturePrinter) PrintHint(s string)        { p.add(s) }
func (p *capturePrinter) PrintUrgent(s string)      { p.add(s) }
func (p *capturePrinter) PrintBlock(s string)       { p.add(s) }
func (p *capturePrinter) PrintVoice(s string)       { p.add("[voice] " + s) }

func (p *capturePrinter) text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.lines, "\n")
}

type nopNotifier struct{ msgs []string }

func (n *nopNotifier) Notify(_ context.Context, m string) error {
	n.msgs = append(n.msgs, m)
	return nil
}

func (n *nopNotifier) NotifyUrgent(_ context.Context, m string) error {
	n.msgs = append(n.msgs, m)
	return nil
}

func newTestApp(t *testing.T) (*cliApp, *capturePrinter, *nopNotifier) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	r := &domain.Recipe{
		ID:    "pasta",
		Title: "Pasta",
		Steps: []domain.Step{
			{ID: "s1", Text: "boil water", DurationMinutes: 5, NeedsTimer: true, IsPassive: true},
			{ID: "s2", Text: "chop onions", DurationMinutes: 2},
			{ID: "s3", Text: "cook pasta", DependsOn: []string{"s1"}, DurationMinutes: 10, NeedsTimer: true, Temperature: "high"},
			{ID: "s4", Text: "combine", DependsOn: []string{"s2", "s3"}},
		},
	}
	l, err := layout.Compute(graph.New(r.Steps))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	sess, err := session.New(context.Background(), r)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	out := &capturePrinter{}
	n := &nopNotifier{}
	return &cliApp{
		recipe:   r,
		layout:   l,
		sess:     sess,
		parser:   conversation.NewKeywordParser(log),
		notifier: n,
		log:      log,
		out:      out,
	}, out, n
}

func (a *cliApp) say(t *testing.T, line string) bool {
	t.Helper()
	intent, err := a.parser.Parse(context.Background(), line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return a.handleIntent(context.Background(), intent)
}

func TestCookCompleteAnnouncesUnlockedSteps(t *testing.T) {
	app, out, _ := newTestApp(t)

	app.say(t, "done 1")
	if got := out.text(); !strings.Contains(got, "Step 1 done.") || !strings.Contains(got, "Now ready: Step 3 (~10m)") {
		t.Fatalf("unexpected output:\n%s", got)
	}
	if !strings.Contains(out.text(), "heat: high; timer 10m") {
		t.Fatalf("announcement lacks step notes:\n%s", out.text())
	}
	if strings.Contains(out.text(), "Now ready: Step 2") {
		t.Fatal("Step 2 was already available and should not be announced")
	}
}

func TestCookFinishingNotifies(t *testing.T) {
	app, _, n := newTestApp(t)
	for _, line := range []string{"1", "2", "3", "4"} {
		app.say(t, line)
	}
	if !app.sess.IsComplete() {
		t.Fatal("session not complete")
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0], "Enjoy") {
		t.Fatalf("expected a completion notice, got %v", n.msgs)
	}
}

func TestCookBareDonePicksOnlyCandidate(t *testing.T) {
	app, out, _ := newTestApp(t)

	// Two steps are available: the cook has to say which.
	app.say(t, "done")
	if !strings.Contains(out.text(), "which step? one of Step 1, Step 2") {
		t.Fatalf("expected a question, got:\n%s", out.text())
	}

	app.say(t, "done 2")
	app.say(t, "done")
	if st, _ := app.sess.StepStatus("s1"); st != domain.StepCompleted {
		t.Fatal("bare 'done' did not complete the single available step")
	}
}

func TestCookUndo(t *testing.T) {
	app, out, _ := newTestApp(t)

	app.say(t, "undo 1")
	if !strings.Contains(out.text(), "Step 1 isn't done yet.") {
		t.Fatalf("unexpected output:\n%s", out.text())
	}
	app.say(t, "done 1")
	app.say(t, "undo 1")
	if st, _ := app.sess.StepStatus("s1"); st != domain.StepPending {
		t.Fatalf("s1 = %s after undo, want pending", st)
	}
}

func TestCookTimers(t *testing.T) {
	app, out, _ := newTestApp(t)

	app.say(t, "timer 2")
	if !strings.Contains(out.text(), "Step 2 has no timer of its own. Try 'timer 2 5'.") {
		t.Fatalf("expected hint for step without duration:\n%s", out.text())
	}

	app.say(t, "timer 1")
	tm, ok := app.sess.Timer("s1")
	if !ok || tm.TotalSeconds != 300 {
		t.Fatalf("timer = %+v, %v; want 300s", tm, ok)
	}

	app.say(t, "timer 2 1.5")
	if tm, _ := app.sess.Timer("s2"); tm.TotalSeconds != 90 {
		t.Fatalf("s2 timer total = %d, want 90", tm.TotalSeconds)
	}

	app.say(t, "pause 1")
	if tm, _ := app.sess.Timer("s1"); tm.Running {
		t.Fatal("pause did not stop the timer")
	}
	app.say(t, "pause 4")
	if !strings.Contains(out.text(), "Step 4 has no timer.") {
		t.Fatalf("expected no-timer hint:\n%s", out.text())
	}
}

func TestCookUnknownStepAndQuit(t *testing.T) {
	app, out, _ := newTestApp(t)

	app.say(t, "done 9")
	if !strings.Contains(out.text(), `there is no step "9"`) {
		t.Fatalf("unexpected output:\n%s", out.text())
	}
	if app.say(t, "quit") {
		t.Fatal("quit should stop the loop")
	}
	if !app.say(t, "status") {
		t.Fatal("status should keep the loop going")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.CycleError{Cycle: []string{"a", "b", "a"}}, "loop: a -> b -> a"},
		{&domain.DanglingReferenceError{StepID: "x", Missing: "y"}, `"x" depends on "y"`},
		{&domain.DuplicateStepError{StepID: "d"}, `"d" is used more than once`},
		{errors.Join(errors.New("ctx"), domain.ErrSessionClosed), "the session is over"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := describe(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("describe(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestCookBareTimerPicksDeclaredTimer(t *testing.T) {
	app, out, _ := newTestApp(t)

	// Steps 1 and 2 are both available; only step 1 declares a timer.
	app.say(t, "timer")
	tm, ok := app.sess.Timer("s1")
	if !ok || tm.TotalSeconds != 300 {
		t.Fatalf("timer = %+v, %v; want a 300s timer on s1", tm, ok)
	}
	if _, ok := app.sess.Timer("s2"); ok {
		t.Fatal("bare timer must not start a timer on a step without one")
	}

	// With steps 1 and 3 done only step 2 is available, and it has no timer
	// of its own, so the cook is asked for a step.
	app.say(t, "done 1")
	app.say(t, "done 3")
	app.say(t, "timer")
	if !strings.Contains(out.text(), "add a step number, e.g. 'timer 2'") {
		t.Fatalf("expected a question:\n%s", out.text())
	}
}

func TestCookRunTakesSpokenCommands(t *testing.T) {
	app, out, _ := newTestApp(t)
	spoken := make(chan string)
	typed := make(chan string)
	app.voice = spoken

	done := make(chan struct{})
	go func() {
		app.run(context.Background(), typed)
		close(done)
	}()

	spoken <- "done 2"
	typed <- "quit"
	<-done

	if !strings.Contains(out.text(), "[voice] done 2") {
		t.Fatalf("spoken command not echoed:\n%s", out.text())
	}
	if st, _ := app.sess.StepStatus("s2"); st != domain.StepCompleted {
		t.Fatalf("s2 status = %v, want completed", st)
	}
}
