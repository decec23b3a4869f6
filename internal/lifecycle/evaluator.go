// Package lifecycle implements the per-tick decision state machine for
// one monitoring epoch:
//
//	AwaitingBaseline -> AwaitingBuySignal -> Holding -> Closed(reason)
//
// One tick is one evaluation, fully serialized; tick N completes before
// tick N+1 begins.
package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/observability"
	"solana-token-watch/internal/oracle"
)

// SampleSource yields the most recent feed trade sample.
type SampleSource interface {
	Latest() (domain.TradeSample, bool)
}

// RateSource yields the current SOL/USD exchange rate.
type RateSource interface {
	Rate() float64
}

// Oracle is the fallback price source, queried only when the feed has
// no usable price and the cooldown has elapsed.
type Oracle interface {
	TokenQuote(ctx context.Context, mint string) (*oracle.Quote, bool)
}

// Evaluator drives the decision state machine for one epoch.
type Evaluator struct {
	cfg     Config
	epoch   *domain.Epoch
	samples SampleSource
	rates   RateSource
	oracle  Oracle // optional
	metrics *observability.Metrics
	log     logrus.FieldLogger

	lastOracleFetch time.Time

	now func() time.Time // injectable for tests
}

// Options configures an Evaluator.
type Options struct {
	Config  Config
	Epoch   *domain.Epoch
	Samples SampleSource
	Rates   RateSource
	Oracle  Oracle
	Metrics *observability.Metrics
	Logger  logrus.FieldLogger
}

// NewEvaluator creates an evaluator bound to one epoch.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		cfg:     opts.Config,
		epoch:   opts.Epoch,
		samples: opts.Samples,
		rates:   opts.Rates,
		oracle:  opts.Oracle,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     time.Now,
	}, nil
}

// Run ticks until the epoch closes or ctx is cancelled. The returned
// outcome is nil when cancelled.
func (e *Evaluator) Run(ctx context.Context) (*domain.Outcome, error) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Debugf("lifecycle: evaluator for %s cancelled", e.epoch.Target.Name())
			return nil, ctx.Err()
		case <-ticker.C:
			outcome := e.Tick(ctx)
			if outcome != nil {
				return outcome, nil
			}
		}
	}
}

// Tick performs one evaluation. Returns a terminal outcome when a
// closing condition fired, nil otherwise. Missing or malformed price
// inputs mean "no price this tick" and are never fatal.
func (e *Evaluator) Tick(ctx context.Context) *domain.Outcome {
	nowt := e.now()

	// A negative token amount is a broken invariant, not a data gap:
	// close the epoch rather than guess at a price.
	if sample, ok := e.samples.Latest(); ok && sample.TokenAmount < 0 {
		e.log.Errorf("lifecycle: negative token amount %v in feed sample for %s",
			sample.TokenAmount, e.epoch.Target.Name())
		return e.close(domain.ReasonInternalError, e.epoch.BuyPrice, nil, nowt)
	}

	quote := e.derivePrice(ctx, nowt)

	var price *float64
	if quote != nil {
		price = &quote.Value
		e.metrics.SetCurrentPrice(quote.Value)
	}

	ep := e.epoch

	// Baseline: set at most once, from the first available price.
	if ep.Baseline == nil && price != nil {
		v := *price
		ep.Baseline = &v
		ep.Status = domain.StatusAwaitingBuySignal
		e.metrics.SetBaselinePrice(v)
		e.log.Infof("lifecycle: baseline for %s set to %.9f USD", ep.Target.Name(), v)
	}

	if ep.Baseline == nil {
		return nil
	}
	baseline := *ep.Baseline

	// Buy signal, checked before the no-signal timeout: a threshold
	// crossing on the timeout tick still counts as a signal.
	if !ep.BuySignalDetected {
		if price != nil && *price > baseline*e.cfg.BuySignalRatio {
			v := *price
			ep.BuySignalDetected = true
			ep.BuyPrice = &v
			ep.Status = domain.StatusHolding
			e.log.Infof("lifecycle: BUY SIGNAL for %s at %.9f USD (baseline %.9f)",
				ep.Target.Name(), v, baseline)
		} else if nowt.Sub(ep.StartTime) > e.cfg.NoBuySignalTimeout {
			e.log.Infof("lifecycle: no buy signal for %s after %s", ep.Target.Name(), e.cfg.NoBuySignalTimeout)
			return e.close(domain.ReasonNoBuySignalTimeout, nil, price, nowt)
		}
	}

	// Take profit / stop loss, only while holding. Take profit is
	// checked first and wins if misconfigured thresholds overlap.
	if ep.BuySignalDetected && ep.BuyPrice != nil && price != nil {
		buy := *ep.BuyPrice
		if *price >= buy*e.cfg.TakeProfitRatio {
			e.log.Infof("lifecycle: TAKE PROFIT for %s at %.9f USD (buy %.9f)", ep.Target.Name(), *price, buy)
			return e.close(domain.ReasonTakeProfit, ep.BuyPrice, price, nowt)
		}
		if *price <= buy*e.cfg.StopLossRatio {
			e.log.Infof("lifecycle: STOP LOSS for %s at %.9f USD (buy %.9f)", ep.Target.Name(), *price, buy)
			return e.close(domain.ReasonStopLoss, ep.BuyPrice, price, nowt)
		}
	}

	// Stagnation, independent of buy-signal state.
	if price != nil {
		threshold := baseline * e.cfg.StagnationRatio
		if *price < threshold {
			if ep.StagnationTimerStart == nil {
				t := nowt
				ep.StagnationTimerStart = &t
				e.log.Infof("lifecycle: price for %s (%.9f) below stagnation threshold (%.9f), timer started",
					ep.Target.Name(), *price, threshold)
			} else if nowt.Sub(*ep.StagnationTimerStart) > e.cfg.StagnationTimeout {
				e.log.Infof("lifecycle: stagnation timeout for %s, price %.9f below %.9f for %s",
					ep.Target.Name(), *price, threshold, e.cfg.StagnationTimeout)
				return e.close(domain.ReasonStagnation, nil, price, nowt)
			}
		} else if ep.StagnationTimerStart != nil {
			// Any recovery tick resets the timer, even a single one.
			e.log.Infof("lifecycle: price for %s recovered above stagnation threshold, timer reset", ep.Target.Name())
			ep.StagnationTimerStart = nil
		}
	} else if ep.StagnationTimerStart == nil && nowt.Sub(ep.StartTime) > e.cfg.StagnationTimeout {
		// No price at all and the stagnation timer never started. This
		// path measures from epoch start, not from the last valid
		// price; the asymmetry is inherited behavior kept as-is.
		e.log.Infof("lifecycle: stagnation timeout for %s, no price data for %s since epoch start",
			ep.Target.Name(), e.cfg.StagnationTimeout)
		return e.close(domain.ReasonStagnationNoData, nil, nil, nowt)
	}

	if price != nil {
		e.logStatus(*price, baseline)
	}
	return nil
}

// derivePrice computes this tick's USD price: the newest feed sample
// scaled by the SOL/USD rate, else a fallback oracle quote when the
// cooldown allows one.
func (e *Evaluator) derivePrice(ctx context.Context, nowt time.Time) *domain.PriceQuote {
	if sample, ok := e.samples.Latest(); ok {
		if solPerToken, ok := sample.SolPerToken(); ok {
			value := solPerToken * e.rates.Rate()
			if value > 0 {
				return &domain.PriceQuote{Value: value, Source: domain.QuoteSourceFeed, ObservedAt: nowt}
			}
		}
	}

	if e.oracle == nil || nowt.Sub(e.lastOracleFetch) <= e.cfg.OracleCooldown {
		return nil
	}
	e.lastOracleFetch = nowt

	quote, ok := e.oracle.TokenQuote(ctx, e.epoch.Target.Address)
	e.metrics.OracleQuery(!ok)
	if !ok || quote.Price <= 0 {
		return nil
	}
	return &domain.PriceQuote{Value: quote.Price, Source: domain.QuoteSourceOracle, ObservedAt: nowt}
}

// close marks the epoch Closed and builds its terminal outcome.
func (e *Evaluator) close(reason domain.CloseReason, buy, sell *float64, nowt time.Time) *domain.Outcome {
	e.epoch.Status = domain.StatusClosed

	o := &domain.Outcome{
		Target:    e.epoch.Target,
		Reason:    reason,
		Timestamp: nowt,
	}
	if buy != nil {
		v := *buy
		o.BuyPrice = &v
	}
	if sell != nil {
		v := *sell
		o.SellPrice = &v
	}
	return o
}

func (e *Evaluator) logStatus(price, baseline float64) {
	entry := e.log.WithFields(logrus.Fields{
		"price":      price,
		"baseline":   baseline,
		"buy_signal": e.epoch.BuySignalDetected,
	})
	if e.epoch.BuyPrice != nil {
		entry = entry.WithField("buy_price", *e.epoch.BuyPrice)
	}
	entry.Debugf("lifecycle: status for %s", e.epoch.Target.Name())
}
