package rules

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// availabilityEntry is one element of the reduced-availability error
// payload carried in error.message.
type availabilityEntry struct {
	DynamicItemID string `json:"dynamic_item_id"`
	ItemID        string `json:"item_id"`
}

// checkErrorPayload validates the reduced-availability error payload: the
// affected parent-item ids it declares must agree, both ways, with the set
// of items whose quantity actually dropped relative to the selection.
func (s *Stage) checkErrorPayload(ctx context.Context, txnID string, order model.Order, c *Collector) error {
	if order.Error == nil || order.Error.Code != codeReducedAvailability {
		return nil
	}
	s.log.Info("checking error message", zap.String("stage", StageOnSelect), zap.String("transaction_id", txnID))

	var raw any
	if err := json.Unmarshal([]byte(order.Error.Message), &raw); err != nil {
		c.Addf(CodeAvailabilityPayload, "the error.message provided in /%s should be a valid JSON array", StageOnSelect)
		return nil
	}
	if _, isArray := raw.([]any); !isArray {
		c.Addf(CodeAvailabilityPayload, "the error.message provided in /%s should be an array", StageOnSelect)
		return nil
	}
	var entries []availabilityEntry
	if err := json.Unmarshal([]byte(order.Error.Message), &entries); err != nil {
		c.Addf(CodeAvailabilityPayload, "the error.message provided in /%s should be a valid JSON array", StageOnSelect)
		return nil
	}

	var selectedQty map[string]int
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ItemsIDList, &selectedQty); err != nil {
		return err
	}

	var parentIDs []string
	for _, line := range order.Quote.Breakup {
		if line.Item != nil && line.Item.ParentItemID != "" {
			parentIDs = append(parentIDs, line.Item.ParentItemID)
		}
	}
	var dynamicIDs []string
	for _, e := range entries {
		dynamicIDs = append(dynamicIDs, e.DynamicItemID)
	}

	for _, id := range difference(dynamicIDs, parentIDs) {
		c.Addf(CodeAvailabilityPayload, "dynamic_item_id: %s doesn't exist in any quote.breakup.item.parent_item_ids", id)
	}

	// Lines whose confirmed quantity dropped below the selected quantity.
	var reduced []model.BreakupLine
	var reducedParentIDs []string
	for _, line := range order.Quote.Breakup {
		if line.ItemQuantity == nil {
			continue
		}
		want, known := selectedQty[line.ItemID]
		if known && int(line.ItemQuantity.Count) < want {
			reduced = append(reduced, line)
			if line.Item != nil && line.Item.ParentItemID != "" {
				reducedParentIDs = append(reducedParentIDs, line.Item.ParentItemID)
			}
		}
	}

	for _, id := range difference(reducedParentIDs, dynamicIDs) {
		c.Addf(CodeAvailabilityPayload, "dynamic_item_id: %s is missing from error payload", id)
	}

	reducedItemIDs := make([]string, 0, len(reduced))
	for _, line := range reduced {
		reducedItemIDs = append(reducedItemIDs, line.ItemID)
	}
	for _, e := range entries {
		if e.ItemID != "" && !contains(reducedItemIDs, e.ItemID) {
			c.Addf(CodeAvailabilityPayload, "item isn't reduced: %s in error message is not present in fulfillments/items", e.ItemID)
		}
	}
	payloadItemIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		payloadItemIDs = append(payloadItemIDs, e.ItemID)
	}
	for _, id := range reducedItemIDs {
		if !contains(payloadItemIDs, id) {
			c.Addf(CodeAvailabilityPayload, "message/order/items for item %s does not match in error message", id)
		}
	}
	return nil
}
