package domain

import "context"

// RecipeSource provides recipes. Implementations can be in-memory (seeded),
// file-based, or backed by the external extraction/storage service.
type RecipeSource interface {
	List(ctx context.Context) ([]RecipeSummary, error)
	Get(ctx context.Context, id string) (*Recipe, error)
	Search(ctx context.Context, query string) ([]RecipeSummary, error)
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout, a terminal UI, or push notifications.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// ExpiryHandler is told when a step's timer runs out. It is invoked exactly
// once per expiry, outside any session lock.
type ExpiryHandler interface {
	TimerExpired(ctx context.Context, stepID string)
}

// ExpiryFunc adapts a plain function to ExpiryHandler.
type ExpiryFunc func(ctx context.Context, stepID string)

// TimerExpired calls f(ctx, stepID).
func (f ExpiryFunc) TimerExpired(ctx context.Context, stepID string) {
	f(ctx, stepID)
}

// ExpiryHandlers fans an expiry out to every non-nil handler in order.
func ExpiryHandlers(handlers ...ExpiryHandler) ExpiryHandler {
	var hs []ExpiryHandler
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return ExpiryFunc(func(ctx context.Context, stepID string) {
		for _, h := range hs {
			h.TimerExpired(ctx, stepID)
		}
	})
}
