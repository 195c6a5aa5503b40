package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ocv/internal/config"
	"ocv/internal/facts"
	"ocv/internal/model"
)

// SelectFacts mirrors what the select-stage validator would have recorded.
// Seeding them by hand lets on_select runs be exercised without replaying
// the earlier stages.
type SelectFacts struct {
	TransactionID    string            `json:"transaction_id"`
	ProviderID       string            `json:"provider_id"`
	ProviderLocation string            `json:"provider_location"`
	Items            map[string]int    `json:"items"` // item id -> selected quantity
	Categories       map[string]string `json:"categories,omitempty"`
	SelectedPrice    float64           `json:"selected_price"`
	TimeToShip       string            `json:"time_to_ship,omitempty"` // ISO-8601 duration
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var input string
	flag.StringVar(&input, "input", "select_facts.json", "select facts JSON file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := run(cfg, input, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func run(cfg config.Config, input string, logger *zap.Logger) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var sf SelectFacts
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if sf.TransactionID == "" {
		return fmt.Errorf("transaction_id is required")
	}

	store, closeStore, err := openFactsStore(cfg)
	if err != nil {
		return fmt.Errorf("init facts store: %w", err)
	}
	defer closeStore()

	ctx := context.Background()
	ttl := cfg.TTL()
	txn := sf.TransactionID

	itemIDs := make([]string, 0, len(sf.Items))
	for id := range sf.Items {
		itemIDs = append(itemIDs, id)
	}

	writes := map[string]any{
		facts.ProviderID:       sf.ProviderID,
		facts.ProviderLocation: sf.ProviderLocation,
		facts.ItemsIDList:      sf.Items,
		facts.ItemCategories:   sf.Categories,
		facts.SelectedPrice:    sf.SelectedPrice,
		facts.SelectItemList:   itemIDs,
	}
	if sf.TimeToShip != "" {
		tts, err := model.DurationSeconds(sf.TimeToShip)
		if err != nil {
			return fmt.Errorf("time_to_ship: %w", err)
		}
		writes[facts.TimeToShip] = tts
	}

	for name, v := range writes {
		if err := facts.SetJSON(ctx, store, txn, name, v, ttl); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	logger.Info("seeded select facts",
		zap.String("transaction_id", txn),
		zap.Int("items", len(sf.Items)),
		zap.String("backend", cfg.FactsBackend))
	return nil
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
