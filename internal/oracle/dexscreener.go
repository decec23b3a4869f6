// Package oracle provides the fallback price source queried when the
// streaming feed has produced no usable price for a tick.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Dexscreener API root.
const DefaultBaseURL = "https://api.dexscreener.com"

// Quote is a normalized oracle response for one token. The engine's
// tick logic consumes only Price; the volume split is surfaced for
// logging and metrics.
type Quote struct {
	Price      float64
	BuyVolume  float64 // estimated h1 buy volume (USD)
	SellVolume float64 // estimated h1 sell volume (USD)
	Buys       int     // h1 buy transaction count
	Sells      int     // h1 sell transaction count
}

// Client queries Dexscreener pool endpoints in priority order.
type Client struct {
	http    *resty.Client
	baseURL string
	log     logrus.FieldLogger
}

// NewClient creates an oracle client. An empty baseURL takes the default.
func NewClient(baseURL string, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    resty.New().SetTimeout(10 * time.Second),
		baseURL: baseURL,
		log:     log,
	}
}

// TokenQuote fetches the best available quote for a mint. Upstream
// failures reduce to (nil, false), logged once per miss; this never
// returns an error to the tick driver.
func (c *Client) TokenQuote(ctx context.Context, mint string) (*Quote, bool) {
	endpoints := []string{
		// Legacy token-pairs endpoint (sometimes still works for Solana).
		fmt.Sprintf("%s/token-pairs/v1/solana/%s", c.baseURL, mint),
		// Newer universal endpoint.
		fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint),
	}

	for i, url := range endpoints {
		pairs, err := c.fetchPairs(ctx, url)
		if err != nil {
			c.log.WithError(err).Debugf("oracle: endpoint %d failed for %s", i+1, mint)
			continue
		}
		for _, p := range pairs {
			if q, ok := normalize(p); ok {
				return q, true
			}
		}
	}

	c.log.Debugf("oracle: no usable price for %s from any endpoint", mint)
	return nil, false
}

// pair is the subset of a Dexscreener pool record the engine consumes.
// priceUsd arrives as a JSON string.
type pair struct {
	PriceUsd string `json:"priceUsd"`
	Txns     struct {
		H1 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h1"`
	} `json:"txns"`
	Volume struct {
		H1 float64 `json:"h1"`
	} `json:"volume"`
}

// fetchPairs normalizes the two response shapes: a bare list of pools,
// or an object with a "pairs" array.
func (c *Client) fetchPairs(ctx context.Context, url string) ([]pair, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	var list []pair
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Pairs []pair `json:"pairs"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	return wrapped.Pairs, nil
}

// normalize converts a pool record into a Quote, requiring a usable
// price and h1 activity fields.
func normalize(p pair) (*Quote, bool) {
	if p.PriceUsd == "" || p.Volume.H1 <= 0 {
		return nil, false
	}
	price, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil || price <= 0 {
		return nil, false
	}

	q := &Quote{
		Price: price,
		Buys:  p.Txns.H1.Buys,
		Sells: p.Txns.H1.Sells,
	}
	if total := q.Buys + q.Sells; total > 0 {
		q.BuyVolume = p.Volume.H1 * float64(q.Buys) / float64(total)
		q.SellVolume = p.Volume.H1 * float64(q.Sells) / float64(total)
	}
	return q, true
}
