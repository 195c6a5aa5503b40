package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven service configuration. Operational knobs
// that vary per invocation stay as CLI flags in the cmds.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	TTLSeconds int `env:"TTL_IN_SECONDS" envDefault:"3600"`

	// FactsBackend selects the fact store: memory|redis|pebble.
	FactsBackend string `env:"FACTS_BACKEND" envDefault:"memory"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	PebbleDir    string `env:"PEBBLE_DIR" envDefault:"./data/facts"`

	KafkaBootstrap string `env:"KAFKA_BOOTSTRAP"`
	PayloadTopic   string `env:"TOPIC_PAYLOADS" envDefault:"retail.on_select"`
	ReportTopic    string `env:"TOPIC_REPORTS" envDefault:"retail.conformance.reports"`
	GroupID        string `env:"KAFKA_GROUP_ID" envDefault:"conformance"`

	ReportDir string `env:"REPORT_DIR" envDefault:"./reports"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// TTL returns the fact expiry as a duration.
func (c Config) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }
