// Package supervisor owns the epoch lifecycle: it acquires the
// cross-process lock, resolves the current target, runs one epoch's
// task group (feed, evaluator, watcher), interprets the first terminal
// signal, and drives the next cycle in-process.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/feed"
	"solana-token-watch/internal/lifecycle"
	"solana-token-watch/internal/lockfile"
	"solana-token-watch/internal/observability"
	"solana-token-watch/internal/queue"
	"solana-token-watch/internal/storage"
)

// Timing defaults for the outer cycle.
const (
	// DefaultCyclePause avoids a busy loop between cycles.
	DefaultCyclePause = 100 * time.Millisecond
	// DefaultLockRetryDelay is the wait before re-attempting a held lock.
	DefaultLockRetryDelay = 3 * time.Second
	// DefaultIdleSleep is the wait when the queue holds no target.
	DefaultIdleSleep = 10 * time.Second
)

// Task names used in failure signals and logs.
const (
	taskFeed      = "feed"
	taskEvaluator = "evaluator"
	taskWatcher   = "watcher"
)

// Supervisor runs the outer monitoring loop: Idle -> Running(epoch) -> Idle.
type Supervisor struct {
	selector *queue.Selector
	lock     *lockfile.Lock
	outcomes storage.OutcomeStore
	archive  storage.TradeSampleStore // optional
	rates    lifecycle.RateSource
	oracle   lifecycle.Oracle // optional
	metrics  *observability.Metrics
	log      logrus.FieldLogger

	feedEndpoint string
	lifecycleCfg lifecycle.Config

	queuePollInterval time.Duration
	cyclePause        time.Duration
	lockRetryDelay    time.Duration
	idleSleep         time.Duration
}

// Options configures a Supervisor.
type Options struct {
	Selector *queue.Selector
	Lock     *lockfile.Lock
	Outcomes storage.OutcomeStore
	Archive  storage.TradeSampleStore
	Rates    lifecycle.RateSource
	Oracle   lifecycle.Oracle
	Metrics  *observability.Metrics
	Logger   logrus.FieldLogger

	FeedEndpoint string
	LifecycleCfg lifecycle.Config

	QueuePollInterval time.Duration
	CyclePause        time.Duration
	LockRetryDelay    time.Duration
	IdleSleep         time.Duration
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	if opts.QueuePollInterval <= 0 {
		opts.QueuePollInterval = DefaultQueuePollInterval
	}
	if opts.CyclePause <= 0 {
		opts.CyclePause = DefaultCyclePause
	}
	if opts.LockRetryDelay <= 0 {
		opts.LockRetryDelay = DefaultLockRetryDelay
	}
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = DefaultIdleSleep
	}
	return &Supervisor{
		selector:          opts.Selector,
		lock:              opts.Lock,
		outcomes:          opts.Outcomes,
		archive:           opts.Archive,
		rates:             opts.Rates,
		oracle:            opts.Oracle,
		metrics:           opts.Metrics,
		log:               opts.Logger,
		feedEndpoint:      opts.FeedEndpoint,
		lifecycleCfg:      opts.LifecycleCfg,
		queuePollInterval: opts.QueuePollInterval,
		cyclePause:        opts.CyclePause,
		lockRetryDelay:    opts.LockRetryDelay,
		idleSleep:         opts.IdleSleep,
	}
}

// Run executes the outer loop until ctx is cancelled. The lock is
// released on exit when this process owns it.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.lock.Release()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Step 1: hold the exclusive lock before any active work.
		acquired, err := s.lock.TryAcquire()
		if err != nil {
			s.log.WithError(err).Warn("supervisor: lock acquisition failed")
		}
		if !acquired {
			s.log.Debugf("supervisor: lock held elsewhere, retrying in %s", s.lockRetryDelay)
			if !sleepCtx(ctx, s.lockRetryDelay) {
				return ctx.Err()
			}
			continue
		}
		s.metrics.LockAcquired()

		// Step 2: resolve the current target.
		target := s.selector.Select()
		if target == nil {
			// No epoch to run; an idle process does not hold the lock.
			s.lock.Release()
			s.log.Debugf("supervisor: no eligible target, checking again in %s", s.idleSleep)
			if !sleepCtx(ctx, s.idleSleep) {
				return ctx.Err()
			}
			continue
		}

		// The holder re-asserts a vanished record before running.
		if err := s.lock.Reassert(); err != nil {
			s.log.WithError(err).Warn("supervisor: lock re-assertion failed")
		}

		// Steps 3-5: run one epoch to its first terminal signal.
		signal := s.runEpoch(ctx, *target)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Step 6: classify and act.
		switch signal.Kind {
		case SignalOutcome:
			s.handleOutcome(ctx, signal.Outcome)
		case SignalRestart:
			s.metrics.RestartSignaled()
			s.log.Infof("supervisor: restart requested while monitoring %s, re-resolving target", target.Name())
		case SignalFailure:
			s.metrics.TaskFailure(signal.Task)
			s.log.WithError(signal.Err).Errorf(
				"supervisor: unexpected failure in %s task for %s (%s), target retained for retry",
				signal.Task, target.Name(), target.Address)
		}

		// Step 7: brief pause between cycles.
		if !sleepCtx(ctx, s.cyclePause) {
			return ctx.Err()
		}
	}
}

// runEpoch starts the three tasks for a fresh epoch and returns the
// first terminal signal. Remaining tasks are cancelled and awaited
// before returning; no late signals escape.
func (s *Supervisor) runEpoch(ctx context.Context, target domain.TokenTarget) Signal {
	epoch := domain.NewEpoch(target, time.Now())
	buffer := feed.NewBuffer(feed.DefaultBufferCapacity)

	evaluator, err := lifecycle.NewEvaluator(lifecycle.Options{
		Config:  s.lifecycleCfg,
		Epoch:   epoch,
		Samples: buffer,
		Rates:   s.rates,
		Oracle:  s.oracle,
		Metrics: s.metrics,
		Logger:  s.log,
	})
	if err != nil {
		return Signal{Kind: SignalFailure, Task: taskEvaluator, Err: err}
	}

	feedClient := feed.NewClient(feed.Options{
		Endpoint: s.feedEndpoint,
		Target:   target,
		Buffer:   buffer,
		Archive:  s.archive,
		Metrics:  s.metrics,
		Logger:   s.log,
	})
	watcher := NewWatcher(s.selector, s.queuePollInterval, s.log)

	s.metrics.EpochStarted()
	s.log.Infof("supervisor: starting epoch for %s (%s)", target.Name(), target.Address)

	epochCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan Signal, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feedClient.Run(epochCtx); err != nil && epochCtx.Err() == nil {
			signals <- Signal{Kind: SignalFailure, Task: taskFeed, Err: err}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, err := evaluator.Run(epochCtx)
		switch {
		case outcome != nil:
			signals <- Signal{Kind: SignalOutcome, Task: taskEvaluator, Outcome: outcome}
		case err != nil && epochCtx.Err() == nil:
			signals <- Signal{Kind: SignalFailure, Task: taskEvaluator, Err: err}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		changed, err := watcher.Run(epochCtx, target.Address)
		switch {
		case changed:
			signals <- Signal{Kind: SignalRestart, Task: taskWatcher}
		case err != nil && epochCtx.Err() == nil:
			signals <- Signal{Kind: SignalFailure, Task: taskWatcher, Err: err}
		}
	}()

	var first Signal
	select {
	case first = <-signals:
	case <-ctx.Done():
		first = Signal{Kind: SignalFailure, Task: "supervisor", Err: ctx.Err()}
	}

	cancel()
	wg.Wait()

	s.log.Infof("supervisor: epoch for %s ended with %s", target.Name(), first)
	return first
}

// handleOutcome persists a completed outcome and removes the target
// from the queue.
func (s *Supervisor) handleOutcome(ctx context.Context, o *domain.Outcome) {
	s.metrics.Outcome(o.Reason.String())
	s.log.Infof("supervisor: token processing complete for %s (%s): %s",
		o.Target.Name(), o.Target.Address, o.Reason)

	if s.outcomes != nil {
		if err := s.outcomes.Append(ctx, o); err != nil {
			s.log.WithError(err).Errorf("supervisor: could not persist outcome for %s", o.Target.Address)
		}
	}

	// Internal errors keep the target queued for the next cycle; only
	// lifecycle outcomes retire it.
	if o.Reason == domain.ReasonInternalError {
		return
	}

	if _, err := s.selector.Remove(o.Target.Address); err != nil {
		s.log.WithError(err).Errorf("supervisor: could not remove %s from queue", o.Target.Address)
	}
}

// sleepCtx waits for d or context cancellation; false means cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
