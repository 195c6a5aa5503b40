package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ocv/internal/config"
	"ocv/internal/facts"
	"ocv/internal/metrics"
	"ocv/internal/model"
	"ocv/internal/report"
	"ocv/internal/rules"
)

// Flags cover per-run operational knobs; shared service settings come from
// the environment (config.Load).
type Flags struct {
	ReportSink string // file|kafka|both
	ReportFile string
	MaxMsgs    int // 0 = run until signalled
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var fl Flags
	flag.StringVar(&fl.ReportSink, "report-sink", "file", "report sink: file|kafka|both")
	flag.StringVar(&fl.ReportFile, "report-file", "on_select.jsonl", "report filename under REPORT_DIR")
	flag.IntVar(&fl.MaxMsgs, "max-messages", 0, "stop after N payloads (0 = run until signalled)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := run(cfg, fl, logger); err != nil {
		logger.Fatal("conformance consumer failed", zap.Error(err))
	}
}

func run(cfg config.Config, fl Flags, logger *zap.Logger) error {
	if cfg.KafkaBootstrap == "" {
		return fmt.Errorf("KAFKA_BOOTSTRAP is required")
	}

	store, closeStore, err := openFactsStore(cfg)
	if err != nil {
		return fmt.Errorf("init facts store: %w", err)
	}
	defer closeStore()

	sink, err := buildReportSink(cfg, fl)
	if err != nil {
		return fmt.Errorf("init report sink: %w", err)
	}

	stage := rules.NewStage(store, cfg.TTL(), rules.BasicContextChecker{}, logger)
	mreg := metrics.NewRegistry()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mreg.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		})
		_ = http.ListenAndServe(cfg.ListenAddr, mux)
	}()

	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  cfg.KafkaBootstrap,
		"group.id":           cfg.GroupID,
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	defer c.Close()
	if err := c.SubscribeTopics([]string{cfg.PayloadTopic}, nil); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("consuming payloads",
		zap.String("topic", cfg.PayloadTopic),
		zap.String("group", cfg.GroupID))

	processed := 0
	for {
		select {
		case <-stop:
			logger.Info("signal received, stopping", zap.Int("processed", processed))
			return nil
		default:
		}
		if fl.MaxMsgs > 0 && processed >= fl.MaxMsgs {
			logger.Info("message limit reached", zap.Int("processed", processed))
			return nil
		}

		msg, err := c.ReadMessage(5 * time.Second)
		if err != nil {
			// No message within the poll window; keep waiting.
			continue
		}
		var payload model.Payload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Warn("skipping undecodable payload",
				zap.Int64("offset", int64(msg.TopicPartition.Offset)), zap.Error(err))
			if _, err := c.CommitMessage(msg); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			continue
		}

		t0 := time.Now()
		errs := stage.Validate(context.Background(), payload)
		mreg.Runs.Inc()
		mreg.RuleErrors.Add(float64(len(errs)))
		mreg.LastErrorCount.Set(float64(len(errs)))
		mreg.RunLatencySec.Observe(time.Since(t0).Seconds())

		r := report.New(payload.Context.TransactionID, rules.StageOnSelect, errs)
		if err := sink.Append(r); err != nil {
			return fmt.Errorf("append report: %w", err)
		}
		if _, err := c.CommitMessage(msg); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		processed++
		logger.Info("validated payload",
			zap.String("transaction_id", payload.Context.TransactionID),
			zap.Int("errors", len(errs)))
	}
}

func buildReportSink(cfg config.Config, fl Flags) (report.Writer, error) {
	var sink report.Writer
	if fl.ReportSink == "file" || fl.ReportSink == "both" || fl.ReportSink == "" {
		fw, err := report.NewFileWriter(cfg.ReportDir, fl.ReportFile)
		if err != nil {
			return nil, err
		}
		sink = fw
	}
	if (fl.ReportSink == "kafka" || fl.ReportSink == "both") && cfg.KafkaBootstrap != "" {
		kw := report.NewKafkaWriter(cfg.KafkaBootstrap, cfg.ReportTopic)
		if sink == nil {
			sink = kw
		} else {
			sink = report.NewMultiWriter(sink, kw)
		}
	}
	if sink == nil {
		return nil, fmt.Errorf("unknown report sink %q", fl.ReportSink)
	}
	return sink, nil
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
