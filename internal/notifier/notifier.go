package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notification kinds. Each channel renders its own copy for a kind.
const (
	KindActivation   = "activation"
	KindConfirmation = "confirmation"
)

// Notification is one user-facing message to fan out across channels.
// Code is only set for KindActivation.
type Notification struct {
	Kind  string
	Name  string
	Email string
	Phone string
	Code  string
}

// Channel delivers a notification over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Result is the per-channel outcome of a dispatch.
type Result struct {
	Channel string
	Err     error
}

// Dispatcher fans a notification out to all channels as independent tasks
// and reports per-channel outcomes. It never aborts on the first failure;
// the caller decides which channels are load-bearing.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger.Named("Dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) []Result {
	results := make([]Result, len(d.channels))

	var wg sync.WaitGroup
	for idx, ch := range d.channels {
		wg.Add(1)
		go func(idx int, ch Channel) {
			defer wg.Done()
			err := ch.Send(ctx, n)
			results[idx] = Result{Channel: ch.Name(), Err: err}
			if err != nil {
				d.logger.Warn("Notification channel failed",
					zap.String("channel", ch.Name()),
					zap.String("kind", n.Kind),
					zap.Error(err))
			}
		}(idx, ch)
	}
	wg.Wait()

	return results
}

// Succeeded reports whether the named channel delivered.
func Succeeded(results []Result, channel string) bool {
	for _, r := range results {
		if r.Channel == channel && r.Err == nil {
			return true
		}
	}
	return false
}
