package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// TimerAlert returns an expiry handler that tells the cook, urgently, which
// step's timer ran out, labelled the way the recipe numbers its steps.
func TimerAlert(n domain.Notifier, r *domain.Recipe, log *logger.Logger) domain.ExpiryHandler {
	return domain.ExpiryFunc(func(ctx context.Context, stepID string) {
		msg := fmt.Sprintf("[Timer] %s is up.", r.Label(stepID))
		if err := n.NotifyUrgent(ctx, msg); err != nil {
			log.Error("timer alert for %s: %v", stepID, err)
		}
	})
}
