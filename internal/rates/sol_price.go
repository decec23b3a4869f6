// Package rates maintains the SOL/USD exchange rate used to convert
// feed trade prices into USD.
package rates

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Defaults mirror the scanner's configuration: a seed rate used until
// the first successful refresh and a 30s refresh cadence.
const (
	DefaultSeedRate        = 155.0
	DefaultRefreshInterval = 30 * time.Second

	defaultPrimaryURL   = "https://frontend-api-v3.pump.fun/sol-price"
	defaultSecondaryURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
)

// Updater periodically refreshes a shared SOL/USD rate. Both endpoints
// failing is never fatal; the previous value is kept.
type Updater struct {
	client       *resty.Client
	primaryURL   string
	secondaryURL string
	interval     time.Duration
	log          logrus.FieldLogger

	mu   sync.RWMutex
	rate float64
}

// Options configures an Updater. Zero values take the defaults above.
type Options struct {
	PrimaryURL   string
	SecondaryURL string
	Interval     time.Duration
	SeedRate     float64
	Logger       logrus.FieldLogger
}

// NewUpdater creates a rate updater. Run must be called for the rate to
// refresh; Rate is usable immediately with the seed value.
func NewUpdater(opts Options) *Updater {
	if opts.PrimaryURL == "" {
		opts.PrimaryURL = defaultPrimaryURL
	}
	if opts.SecondaryURL == "" {
		opts.SecondaryURL = defaultSecondaryURL
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.SeedRate <= 0 {
		opts.SeedRate = DefaultSeedRate
	}

	return &Updater{
		client:       resty.New().SetTimeout(10 * time.Second),
		primaryURL:   opts.PrimaryURL,
		secondaryURL: opts.SecondaryURL,
		interval:     opts.Interval,
		log:          opts.Logger,
		rate:         opts.SeedRate,
	}
}

// Rate returns the latest known SOL/USD rate.
func (u *Updater) Rate() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.rate
}

// Run refreshes the rate until the context is cancelled.
func (u *Updater) Run(ctx context.Context) {
	u.refresh(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.log.Debug("rates: updater stopped")
			return
		case <-ticker.C:
			u.refresh(ctx)
		}
	}
}

// refresh tries the primary endpoint, then the fallback. On total
// failure the last known rate is left in place.
func (u *Updater) refresh(ctx context.Context) {
	if price, ok := u.fetchPrimary(ctx); ok {
		u.store(price, "primary")
		return
	}
	if price, ok := u.fetchSecondary(ctx); ok {
		u.store(price, "fallback")
		return
	}
	u.log.Warnf("rates: could not refresh SOL/USD from either source, keeping %.2f", u.Rate())
}

func (u *Updater) fetchPrimary(ctx context.Context) (float64, bool) {
	var body struct {
		SolPrice float64 `json:"solPrice"`
	}
	resp, err := u.client.R().SetContext(ctx).SetResult(&body).Get(u.primaryURL)
	if err != nil || !resp.IsSuccess() || body.SolPrice <= 0 {
		return 0, false
	}
	return body.SolPrice, true
}

func (u *Updater) fetchSecondary(ctx context.Context) (float64, bool) {
	var body struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	resp, err := u.client.R().SetContext(ctx).SetResult(&body).Get(u.secondaryURL)
	if err != nil || !resp.IsSuccess() || body.Solana.USD <= 0 {
		return 0, false
	}
	return body.Solana.USD, true
}

func (u *Updater) store(price float64, source string) {
	u.mu.Lock()
	previous := u.rate
	u.rate = price
	u.mu.Unlock()

	if previous != price {
		u.log.Infof("rates: SOL/USD updated (%s): %.2f (was %.2f)", source, price, previous)
	}
}
