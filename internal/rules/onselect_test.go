package rules

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"ocv/internal/facts"
	"ocv/internal/model"
)

func TestValidate_ConformantMessage(t *testing.T) {
	store := facts.NewMemoryStore()
	seedSelectFacts(t, store)
	s := newTestStage(store)

	errs := s.Validate(context.Background(), basePayload())
	if len(errs) != 0 {
		t.Fatalf("expected no findings, got %+v", errs)
	}

	// Raw payload must have been persisted under the stage key.
	var raw model.Payload
	ok, err := facts.GetJSON(context.Background(), store, testTxnID, facts.RawOnSelect, &raw)
	if err != nil || !ok {
		t.Fatalf("raw payload not persisted: ok=%v err=%v", ok, err)
	}
	if raw.Context.TransactionID != testTxnID {
		t.Fatalf("raw payload transaction id = %q", raw.Context.TransactionID)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	p := basePayload()
	p.Message.Order.Provider.ID = "someone-else" // provoke findings
	p.Message.Order.Fulfillments[0].Tracking = nil

	run := func() []ValidationError {
		store := facts.NewMemoryStore()
		seedSelectFacts(t, store)
		return newTestStage(store).Validate(context.Background(), p)
	}
	first := run()
	second := run()
	if len(first) == 0 {
		t.Fatalf("expected findings")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs differ:\n%+v\n%+v", first, second)
	}
}

func TestValidate_ContextFailureShortCircuits(t *testing.T) {
	store := facts.NewMemoryStore()
	seedSelectFacts(t, store)
	s := newTestStage(store)

	p := basePayload()
	p.Context.Action = StageSelect

	errs := s.Validate(context.Background(), p)
	if len(errs) != 1 {
		t.Fatalf("expected single finding, got %+v", errs)
	}
	if errs[0].Code != CodeMismatch {
		t.Fatalf("unexpected code %d", errs[0].Code)
	}

	// Short-circuit means the raw payload was never persisted.
	var raw model.Payload
	ok, err := facts.GetJSON(context.Background(), store, testTxnID, facts.RawOnSelect, &raw)
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	if ok {
		t.Fatalf("raw payload should not be persisted on context failure")
	}
}

// failingStore fails reads of one named fact and delegates the rest.
type failingStore struct {
	facts.Store
	failName string
}

func (f *failingStore) Get(ctx context.Context, txnID, name string) ([]byte, bool, error) {
	if name == f.failName {
		return nil, false, errors.New("cache unavailable")
	}
	return f.Store.Get(ctx, txnID, name)
}

func TestValidate_CheckFailureIsIsolated(t *testing.T) {
	mem := facts.NewMemoryStore()
	seedSelectFacts(t, mem)
	store := &failingStore{Store: mem, failName: facts.ItemsIDList}
	s := newTestStage(store)

	p := basePayload()
	p.Message.Order.Fulfillments[0].Tracking = nil // fulfillment check must still fire

	errs := s.Validate(context.Background(), p)

	if !containsDescription(errs, "error while checking quote") {
		t.Fatalf("expected synthetic quote finding, got %+v", errs)
	}
	if !containsDescription(errs, "tracking must be present") {
		t.Fatalf("fulfillment check should still run, got %+v", errs)
	}
	synthetic := 0
	for _, e := range errs {
		if strings.Contains(e.Description, "error while checking") {
			synthetic++
		}
	}
	if synthetic != 1 {
		t.Fatalf("expected exactly one synthetic finding, got %+v", errs)
	}
}
