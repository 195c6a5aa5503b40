package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps facts in an embedded Pebble database for runs without a
// shared Redis. Pebble has no native expiry, so each value is wrapped in an
// envelope carrying its expiry epoch and expired entries read as absent.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

type pebbleEnvelope struct {
	Value     json.RawMessage `json:"v"`
	ExpiresAt int64           `json:"exp"`
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(_ context.Context, txnID, name string) ([]byte, bool, error) {
	k := []byte(Key(txnID, name))
	v, closer, err := p.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()
	var env pebbleEnvelope
	if err := json.Unmarshal(v, &env); err != nil {
		return nil, false, fmt.Errorf("pebble decode: %w", err)
	}
	if p.now().Unix() >= env.ExpiresAt {
		// Expired; removal is best-effort.
		_ = p.db.Delete(k, pebble.NoSync)
		return nil, false, nil
	}
	return append([]byte(nil), env.Value...), true, nil
}

func (p *PebbleStore) Set(_ context.Context, txnID, name string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	env := pebbleEnvelope{Value: value, ExpiresAt: p.now().Add(ttl).Unix()}
	b, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("pebble encode: %w", err)
	}
	if err := p.db.Set([]byte(Key(txnID, name)), b, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}
