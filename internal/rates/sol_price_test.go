package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func failingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func TestUpdater_SeedRate(t *testing.T) {
	u := NewUpdater(Options{Logger: quietLogger()})
	if u.Rate() != DefaultSeedRate {
		t.Fatalf("Rate() = %v before any refresh, want %v", u.Rate(), DefaultSeedRate)
	}

	u = NewUpdater(Options{SeedRate: 200, Logger: quietLogger()})
	if u.Rate() != 200 {
		t.Fatalf("Rate() = %v, want explicit seed 200", u.Rate())
	}
}

func TestUpdater_RefreshFromPrimary(t *testing.T) {
	primary := httptest.NewServer(jsonHandler(`{"solPrice": 172.5}`))
	defer primary.Close()
	secondary := httptest.NewServer(failingHandler())
	defer secondary.Close()

	u := NewUpdater(Options{
		PrimaryURL:   primary.URL,
		SecondaryURL: secondary.URL,
		Logger:       quietLogger(),
	})
	u.refresh(context.Background())
	if u.Rate() != 172.5 {
		t.Fatalf("Rate() = %v, want 172.5 from primary", u.Rate())
	}
}

func TestUpdater_FallsBackToSecondary(t *testing.T) {
	primary := httptest.NewServer(failingHandler())
	defer primary.Close()
	secondary := httptest.NewServer(jsonHandler(`{"solana": {"usd": 168.0}}`))
	defer secondary.Close()

	u := NewUpdater(Options{
		PrimaryURL:   primary.URL,
		SecondaryURL: secondary.URL,
		Logger:       quietLogger(),
	})
	u.refresh(context.Background())
	if u.Rate() != 168.0 {
		t.Fatalf("Rate() = %v, want 168.0 from fallback", u.Rate())
	}
}

func TestUpdater_KeepsRateOnTotalFailure(t *testing.T) {
	primary := httptest.NewServer(failingHandler())
	defer primary.Close()
	secondary := httptest.NewServer(failingHandler())
	defer secondary.Close()

	u := NewUpdater(Options{
		PrimaryURL:   primary.URL,
		SecondaryURL: secondary.URL,
		SeedRate:     150,
		Logger:       quietLogger(),
	})
	u.refresh(context.Background())
	if u.Rate() != 150 {
		t.Fatalf("Rate() = %v, want previous value 150 kept", u.Rate())
	}
}

func TestUpdater_RejectsNonPositiveRates(t *testing.T) {
	primary := httptest.NewServer(jsonHandler(`{"solPrice": 0}`))
	defer primary.Close()
	secondary := httptest.NewServer(jsonHandler(`{"solana": {"usd": -3}}`))
	defer secondary.Close()

	u := NewUpdater(Options{
		PrimaryURL:   primary.URL,
		SecondaryURL: secondary.URL,
		SeedRate:     150,
		Logger:       quietLogger(),
	})
	u.refresh(context.Background())
	if u.Rate() != 150 {
		t.Fatalf("Rate() = %v, want 150 after rejecting bad values", u.Rate())
	}
}
