package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/observability"
)

const testMint = "So11111111111111111111111111111111111111112"

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// tradeServer upgrades one connection, verifies the subscription, then
// pushes the given frames and holds the connection open.
func tradeServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub.Method != "subscribeTokenTrade" {
			t.Errorf("unexpected subscribe method %q", sub.Method)
		}
		if len(sub.Keys) != 1 || sub.Keys[0] != testMint {
			t.Errorf("unexpected subscribe keys %v", sub.Keys)
		}

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_SubscribesAndBuffersTrades(t *testing.T) {
	frames := []string{
		`{"mint":"` + testMint + `","tokenAmount":1000,"solAmount":2.5,"side":"BUY","wallet":"W1"}`,
		`{"mint":"OtherMint","tokenAmount":1,"solAmount":1}`, // wrong mint, skipped
		`not json at all`,                                   // unparseable, dropped
		`{"mint":"` + testMint + `","side":"sell"}`,         // missing amounts, dropped
		`{"mint":"` + testMint + `","tokenAmount":500,"solAmount":1.0,"side":"sell","wallet":"W2"}`,
	}
	srv := tradeServer(t, frames)
	defer srv.Close()

	buffer := NewBuffer(10)
	client := NewClient(Options{
		Endpoint:       wsURL(srv),
		Target:         domain.TokenTarget{Address: testMint, DisplayName: "TEST"},
		Buffer:         buffer,
		Logger:         quietLogger(),
		ReconnectDelay: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for buffer.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if buffer.Len() != 2 {
		t.Fatalf("expected 2 buffered samples, got %d", buffer.Len())
	}

	snap := buffer.Snapshot()
	first := snap[0]
	if first.TokenAmount != 1000 || first.SolAmount != 2.5 || first.Side != domain.SideBuy || first.Wallet != "W1" {
		t.Fatalf("unexpected first sample %+v", first)
	}

	latest, _ := buffer.Latest()
	if latest.TokenAmount != 500 || latest.Side != domain.SideSell {
		t.Fatalf("unexpected latest sample %+v", latest)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

// counterValue gathers the default registry and returns the value of a
// single-sample counter by name.
func counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestClient_DropCounterSkipsMintMismatch(t *testing.T) {
	frames := []string{
		`{"mint":"OtherMint","tokenAmount":1,"solAmount":1}`, // wrong mint, not a drop
		`not json at all`,                                   // dropped
		`{"mint":"` + testMint + `","side":"sell"}`,         // missing amounts, dropped
		`{"mint":"` + testMint + `","tokenAmount":500,"solAmount":1.0,"side":"sell","wallet":"W2"}`,
	}
	srv := tradeServer(t, frames)
	defer srv.Close()

	buffer := NewBuffer(10)
	client := NewClient(Options{
		Endpoint:       wsURL(srv),
		Target:         domain.TokenTarget{Address: testMint, DisplayName: "TEST"},
		Buffer:         buffer,
		Logger:         quietLogger(),
		Metrics:        observability.New(),
		ReconnectDelay: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for buffer.Len() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if buffer.Len() != 1 {
		t.Fatalf("expected 1 buffered sample, got %d", buffer.Len())
	}

	if got := counterValue(t, "watch_trades_dropped_total"); got != 2 {
		t.Fatalf("watch_trades_dropped_total = %v, want 2 (mint mismatch must not count)", got)
	}
	if got := counterValue(t, "watch_trades_received_total"); got != 1 {
		t.Fatalf("watch_trades_received_total = %v, want 1", got)
	}
}

func TestClient_RunStopsWhenAlreadyCancelled(t *testing.T) {
	client := NewClient(Options{
		Endpoint: "ws://127.0.0.1:1",
		Target:   domain.TokenTarget{Address: testMint},
		Buffer:   NewBuffer(1),
		Logger:   quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestClient_ReconnectsAfterDisconnect(t *testing.T) {
	connects := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connects <- struct{}{}
		conn.Close() // drop immediately, forcing the client to retry
	}))
	defer srv.Close()

	client := NewClient(Options{
		Endpoint:       wsURL(srv),
		Target:         domain.TokenTarget{Address: testMint},
		Buffer:         NewBuffer(1),
		Logger:         quietLogger(),
		ReconnectDelay: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-time.After(5 * time.Second):
			t.Fatalf("expected at least 2 connection attempts, saw %d", i)
		}
	}
}
