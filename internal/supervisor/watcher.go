package supervisor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
)

// DefaultQueuePollInterval is how often the watcher re-reads the queue.
const DefaultQueuePollInterval = 10 * time.Second

// TargetSelector resolves the current eligible target from the queue.
type TargetSelector interface {
	Select() *domain.TokenTarget
}

// Watcher periodically re-reads the target queue and reports when the
// queue's selection no longer matches the running epoch. Advisory only:
// it never mutates epoch state.
type Watcher struct {
	selector TargetSelector
	interval time.Duration
	log      logrus.FieldLogger
}

// NewWatcher creates a queue watcher.
func NewWatcher(selector TargetSelector, interval time.Duration, log logrus.FieldLogger) *Watcher {
	if interval <= 0 {
		interval = DefaultQueuePollInterval
	}
	return &Watcher{selector: selector, interval: interval, log: log}
}

// Run polls until the queue's selected target differs from runningAddr,
// including the queue becoming empty. Returns (true, nil) when a
// restart is requested, (false, ctx.Err()) on cancellation.
func (w *Watcher) Run(ctx context.Context, runningAddr string) (bool, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			target := w.selector.Select()
			switch {
			case target == nil:
				w.log.Infof("watcher: queue no longer holds a target (was monitoring %s), requesting restart", runningAddr)
				return true, nil
			case target.Address != runningAddr:
				w.log.Infof("watcher: queue target changed to %s (%s), was %s, requesting restart",
					target.Name(), target.Address, runningAddr)
				return true, nil
			}
		}
	}
}
