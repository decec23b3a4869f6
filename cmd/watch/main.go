// Package main runs the token watch engine: one actively-selected
// token is monitored in real time through a streaming trade feed with
// an oracle fallback, decided by threshold rules, and coordinated with
// the sibling scanner process through a filesystem lock.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/feed"
	"solana-token-watch/internal/lifecycle"
	"solana-token-watch/internal/lockfile"
	"solana-token-watch/internal/logging"
	"solana-token-watch/internal/observability"
	"solana-token-watch/internal/oracle"
	"solana-token-watch/internal/queue"
	"solana-token-watch/internal/rates"
	"solana-token-watch/internal/storage"
	chstore "solana-token-watch/internal/storage/clickhouse"
	"solana-token-watch/internal/storage/csvlog"
	pgstore "solana-token-watch/internal/storage/postgres"
	"solana-token-watch/internal/supervisor"
)

func main() {
	// Load .env if present; system env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults).
	queuePath := flag.String("queue", envOr("TOKEN_RISK_ANALYSIS_CSV", "token_risk_analysis.csv"), "Target queue CSV path")
	lockPath := flag.String("lock-file", envOr("WATCH_LOCK_FILE", "monitoring_active.lock"), "Exclusive lock file path shared with the scanner")
	tradesCSV := flag.String("trades-csv", envOr("TRADES_CSV", "trades.csv"), "Outcome log CSV path")
	feedEndpoint := flag.String("feed-endpoint", envOr("FEED_WS_ENDPOINT", feed.DefaultEndpoint), "Streaming trade feed WebSocket endpoint")
	oracleURL := flag.String("oracle-url", envOr("ORACLE_BASE_URL", oracle.DefaultBaseURL), "Fallback price oracle base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN for the outcome audit log (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for the trade sample archive (optional)")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", os.Getenv("LOG_FILE"), "Rotating log file path (optional)")

	impactThreshold := flag.Float64("impact-threshold", envOrFloat("PRICE_IMPACT_THRESHOLD", queue.DefaultImpactThreshold), "Maximum cluster-sell price impact percent for an eligible target")
	buySignalRatio := flag.Float64("buy-signal-ratio", 1.01, "Buy signal threshold over baseline")
	takeProfitRatio := flag.Float64("take-profit-ratio", 1.10, "Take profit threshold over buy price")
	stopLossRatio := flag.Float64("stop-loss-ratio", 0.95, "Stop loss threshold under buy price")
	stagnationRatio := flag.Float64("stagnation-ratio", 0.80, "Stagnation threshold under baseline")
	noSignalTimeout := flag.Duration("no-signal-timeout", 180*time.Second, "Close epoch if no buy signal this long after start")
	stagnationTimeout := flag.Duration("stagnation-timeout", 180*time.Second, "Close epoch if price stays depressed this long")
	tickInterval := flag.Duration("tick-interval", 1*time.Second, "Evaluator tick interval")
	queuePoll := flag.Duration("queue-poll", supervisor.DefaultQueuePollInterval, "Queue re-read interval")
	lockTTL := flag.Duration("lock-ttl", lockfile.DefaultTTL, "Lock record age after which it may be reclaimed")
	rateInterval := flag.Duration("sol-rate-interval", rates.DefaultRefreshInterval, "SOL/USD rate refresh interval")

	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, OutputFile: *logFile})

	// Top-level interrupt triggers graceful shutdown: cancel all epoch
	// tasks, await termination, release the lock, exit cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.New()
	go serveMetrics(*metricsAddr, log)

	// Outcome stores: trades CSV always; Postgres audit log when configured.
	outcomes := storage.MultiOutcomeStore{csvlog.NewOutcomeStore(*tradesCSV)}
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			log.WithError(err).Fatal("connect to postgres")
		}
		defer pool.Close()

		pgOutcomes := pgstore.NewOutcomeStore(pool)
		if err := pgOutcomes.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("prepare postgres schema")
		}
		outcomes = append(outcomes, pgOutcomes)
		log.Info("outcome audit log enabled (postgres)")
	}

	// Trade sample archive when ClickHouse is configured.
	var archive storage.TradeSampleStore
	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			log.WithError(err).Fatal("connect to clickhouse")
		}
		defer conn.Close()

		chArchive := chstore.NewTradeSampleStore(conn)
		if err := chArchive.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("prepare clickhouse schema")
		}
		archive = chArchive
		log.Info("trade sample archive enabled (clickhouse)")
	}

	updater := rates.NewUpdater(rates.Options{
		Interval: *rateInterval,
		Logger:   log,
	})
	go updater.Run(ctx)
	go mirrorRateGauge(ctx, updater, metrics, *rateInterval)

	// Any lock record present at startup is a crash leftover.
	lock := lockfile.New(*lockPath, "", *lockTTL, log)
	lock.ClearStale()

	lifecycleCfg := lifecycle.DefaultConfig()
	lifecycleCfg.BuySignalRatio = *buySignalRatio
	lifecycleCfg.TakeProfitRatio = *takeProfitRatio
	lifecycleCfg.StopLossRatio = *stopLossRatio
	lifecycleCfg.StagnationRatio = *stagnationRatio
	lifecycleCfg.NoBuySignalTimeout = *noSignalTimeout
	lifecycleCfg.StagnationTimeout = *stagnationTimeout
	lifecycleCfg.TickInterval = *tickInterval
	if err := lifecycleCfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid lifecycle configuration")
	}

	sup := supervisor.New(supervisor.Options{
		Selector:          queue.NewSelector(*queuePath, *impactThreshold, log),
		Lock:              lock,
		Outcomes:          outcomes,
		Archive:           archive,
		Rates:             updater,
		Oracle:            oracle.NewClient(*oracleURL, log),
		Metrics:           metrics,
		Logger:            log,
		FeedEndpoint:      *feedEndpoint,
		LifecycleCfg:      lifecycleCfg,
		QueuePollInterval: *queuePoll,
	})

	log.Infof("token watch engine starting (queue=%s lock=%s owner=%s)", *queuePath, *lockPath, lock.OwnerID())
	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("supervisor exited")
	}
	log.Info("shutdown complete")
}

// serveMetrics exposes Prometheus metrics and a liveness endpoint.
func serveMetrics(addr string, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server: %v", err)
	}
}

// mirrorRateGauge keeps the SOL/USD gauge aligned with the updater.
func mirrorRateGauge(ctx context.Context, u *rates.Updater, m *observability.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetSolUsdRate(u.Rate())
		}
	}
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envOrFloat returns the environment value for key parsed as a float,
// or def when unset or unparseable.
func envOrFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
