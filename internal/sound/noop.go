package sound

import (
	"context"

	"github.com/hammamikhairi/mise/internal/logger"
)

// NoOp is a Beeper that only logs. Used when sound is disabled.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent beeper.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// TimerExpired does nothing.
func (n *NoOp) TimerExpired(_ context.Context, stepID string) {
	n.log.Debug("sound no-op: would beep for %s", stepID)
}

// Close does nothing.
func (n *NoOp) Close() error { return nil }
