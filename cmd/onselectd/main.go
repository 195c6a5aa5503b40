package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ocv/internal/config"
	"ocv/internal/facts"
	"ocv/internal/metrics"
	"ocv/internal/model"
	"ocv/internal/rules"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("onselectd failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	store, closeStore, err := openFactsStore(cfg)
	if err != nil {
		return fmt.Errorf("init facts store: %w", err)
	}
	defer closeStore()

	stage := rules.NewStage(store, cfg.TTL(), rules.BasicContextChecker{}, logger)
	mreg := metrics.NewRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", mreg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/v1/validate/on_select", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload model.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": fmt.Sprintf("decode payload: %v", err)})
			return
		}

		t0 := time.Now()
		errs := stage.Validate(r.Context(), payload)
		mreg.Runs.Inc()
		mreg.RuleErrors.Add(float64(len(errs)))
		mreg.LastErrorCount.Set(float64(len(errs)))
		mreg.RunLatencySec.Observe(time.Since(t0).Seconds())

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(errs)
	})

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("facts_backend", cfg.FactsBackend),
		zap.Int("ttl_seconds", cfg.TTLSeconds))
	return http.ListenAndServe(cfg.ListenAddr, mux)
}

func openFactsStore(cfg config.Config) (facts.Store, func(), error) {
	switch cfg.FactsBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return facts.NewRedisStore(client), func() { _ = client.Close() }, nil
	case "pebble":
		ps, err := facts.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, nil, err
		}
		return ps, func() { _ = ps.Close() }, nil
	case "memory", "":
		return facts.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown facts backend %q", cfg.FactsBackend)
	}
}
