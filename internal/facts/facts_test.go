package facts

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_RoundTripAndAbsence(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "t1", ProviderID); err != nil || ok {
		t.Fatalf("unseen fact should be absent: ok=%v err=%v", ok, err)
	}

	if err := SetJSON(ctx, s, "t1", ProviderID, "prov-1", DefaultTTL); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	ok, err := GetJSON(ctx, s, "t1", ProviderID, &got)
	if err != nil || !ok || got != "prov-1" {
		t.Fatalf("round trip: ok=%v err=%v got=%q", ok, err, got)
	}

	// Same fact for a different transaction stays absent.
	if ok, _ := GetJSON(ctx, s, "t2", ProviderID, &got); ok {
		t.Fatalf("facts leaked across transactions")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	if err := s.Set(ctx, "t1", TimeToShip, []byte(`3600`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "t1", TimeToShip); !ok {
		t.Fatalf("fresh fact should be present")
	}

	current = base.Add(61 * time.Second)
	if _, ok, _ := s.Get(ctx, "t1", TimeToShip); ok {
		t.Fatalf("expired fact should read as absent")
	}
}

func TestKeyLayout(t *testing.T) {
	if got := Key("txn-1", ProviderID); got != "txn-1_providerId" {
		t.Fatalf("key = %q", got)
	}
	if got := TrackingFact("F1"); got != "F1_tracking" {
		t.Fatalf("tracking fact = %q", got)
	}
}
