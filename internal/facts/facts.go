package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL matches the protocol-wide default fact expiry.
const DefaultTTL = 3600 * time.Second

// Fact names shared across stages. Every fact lives under the cache key
// "<transactionId>_<name>"; the names are part of the cross-stage contract
// and must not change between validator versions.
const (
	ProviderID        = "providerId"
	ProviderLocation  = "providerLoc"
	ItemsIDList       = "itemsIdList"
	ItemCategories    = "itemsCtgrs"
	SelectedPrice     = "selectedPrice"
	SelectItemList    = "SelectItemList"
	ItemFulfillments  = "itemFlfllmnts"
	TimeToShip        = "timeToShip"
	FulfillmentIDList = "fulfillmentIdArray"
	FulfillmentTAT    = "fulfillment_tat_obj"
	QuoteObject       = "quoteObj"
	QuotedPrice       = "onSelectPrice"
	ItemPriceMap      = "selectPriceMap"
	RawOnSelect       = "on_select"
)

// Key builds the cache key for one fact of one transaction.
func Key(txnID, name string) string { return txnID + "_" + name }

// TrackingFact names the per-fulfillment tracking fact.
func TrackingFact(fulfillmentID string) string { return fulfillmentID + "_tracking" }

// Store abstracts the shared fact cache. Absence is a valid outcome
// ("fact not yet known"), distinct from a read failure. No multi-key
// atomicity is provided; each fact is independent.
type Store interface {
	Get(ctx context.Context, txnID, name string) ([]byte, bool, error)
	Set(ctx context.Context, txnID, name string, value []byte, ttl time.Duration) error
}

// GetJSON reads a fact and decodes it into out. Returns false when the fact
// is absent or expired.
func GetJSON(ctx context.Context, s Store, txnID, name string, out any) (bool, error) {
	b, ok, err := s.Get(ctx, txnID, name)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it as a fact with the given TTL.
func SetJSON(ctx context.Context, s Store, txnID, name string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.Set(ctx, txnID, name, b, ttl); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// MemoryStore is a thread-safe map store with per-entry expiry. Used by
// tests and single-process runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, txnID, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[Key(txnID, name)]
	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, txnID, name string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[Key(txnID, name)] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}
