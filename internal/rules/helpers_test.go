package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

const testTxnID = "txn-1"

var testContextTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestStage(store facts.Store) *Stage {
	return NewStage(store, facts.DefaultTTL, BasicContextChecker{}, zap.NewNop())
}

// seedSelectFacts records what the select stage would have left behind:
// provider prov-1 at loc-1, item I1 selected twice at a 100 total, and a
// one-hour time-to-ship.
func seedSelectFacts(t *testing.T, store facts.Store) {
	t.Helper()
	ctx := context.Background()
	writes := map[string]any{
		facts.ProviderID:       "prov-1",
		facts.ProviderLocation: "loc-1",
		facts.ItemsIDList:      map[string]int{"I1": 2},
		facts.ItemCategories:   map[string]string{"I1": "Grocery"},
		facts.SelectedPrice:    100.0,
		facts.SelectItemList:   []string{"I1"},
		facts.TimeToShip:       int64(3600),
	}
	for name, v := range writes {
		if err := facts.SetJSON(ctx, store, testTxnID, name, v, facts.DefaultTTL); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

// basePayload builds an on_select response that is fully consistent with
// the facts from seedSelectFacts; a run over it must yield zero findings.
func basePayload() model.Payload {
	tracking := true
	return model.Payload{
		Context: model.Context{
			Action:        StageOnSelect,
			TransactionID: testTxnID,
			MessageID:     "msg-1",
			Timestamp:     testContextTime,
		},
		Message: model.Message{Order: model.Order{
			Provider: model.Provider{ID: "prov-1", Locations: []model.Location{{ID: "loc-1"}}},
			Items:    []model.Item{{ID: "I1", FulfillmentID: "F1"}},
			Fulfillments: []model.Fulfillment{{
				ID:       "F1",
				Type:     "Delivery",
				TAT:      "PT2H",
				Category: "Standard Delivery",
				Tracking: &tracking,
				State:    &model.FulfillmentState{Descriptor: model.Descriptor{Code: "Serviceable"}},
				End: &model.FulfillmentStop{Time: &model.StopTime{Range: &model.TimeRange{
					Start: "2024-01-01T11:00:00Z",
					End:   "2024-01-01T12:00:00Z",
				}}},
			}},
			Quote: model.Quote{
				Price: model.Price{Value: "100"},
				Breakup: []model.BreakupLine{{
					Title:        "Item",
					TitleType:    "item",
					ItemID:       "I1",
					ItemQuantity: &model.CountHolder{Count: 2},
					Price:        model.Price{Value: "100"},
					Item:         &model.BreakupItem{Price: &model.Price{Value: "50"}},
				}},
			},
		}},
	}
}

func errorsWithCode(errs []ValidationError, code int) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

func containsDescription(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Description, substr) {
			return true
		}
	}
	return false
}
