package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// recordingNotifier collects notifications for testing.
type recordingNotifier struct {
	mu     sync.Mutex
	normal []string
	urgent []string
	err    error
}

func (m *recordingNotifier) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normal = append(m.normal, msg)
	return m.err
}

func (m *recordingNotifier) NotifyUrgent(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urgent = append(m.urgent, msg)
	return m.err
}

func TestTimerAlert(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	r := &domain.Recipe{Steps: []domain.Step{
		{ID: "boil", Text: "Boil water"},
		{ID: "sear", Text: "Sear the chicken"},
	}}
	n := &recordingNotifier{}
	alert := TimerAlert(n, r, log)

	alert.TimerExpired(context.Background(), "boil")
	alert.TimerExpired(context.Background(), "sear")
	alert.TimerExpired(context.Background(), "ghost")

	if len(n.urgent) != 3 || len(n.normal) != 0 {
		t.Fatalf("expected 3 urgent notifications, got urgent=%v normal=%v", n.urgent, n.normal)
	}
	if n.urgent[0] != "[Timer] Step 1 is up." {
		t.Fatalf("unexpected alert: %q", n.urgent[0])
	}
	if n.urgent[1] != "[Timer] Step 2 is up." {
		t.Fatalf("unexpected alert: %q", n.urgent[1])
	}
	if n.urgent[2] != "[Timer] ghost is up." {
		t.Fatalf("unexpected alert for unknown step: %q", n.urgent[2])
	}
}

func TestTimerAlertSwallowsNotifierError(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	n := &recordingNotifier{err: errors.New("terminal gone")}
	r := &domain.Recipe{Steps: []domain.Step{{ID: "a", Text: "a"}}}

	// Must not panic; the error is only logged.
	TimerAlert(n, r, log).TimerExpired(context.Background(), "a")
	if len(n.urgent) != 1 {
		t.Fatalf("expected one attempt, got %d", len(n.urgent))
	}
}

func TestCLINotifier(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	var lines []string
	n := NewCLINotifier(log, func(format string, a ...any) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf(format, a...)))
	})

	_ = n.Notify(context.Background(), "hello")
	_ = n.NotifyUrgent(context.Background(), "fire")

	if len(lines) != 2 || !strings.Contains(lines[0], "hello") || !strings.Contains(lines[1], "fire") {
		t.Fatalf("unexpected output: %q", lines)
	}
}
