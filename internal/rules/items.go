package rules

import (
	"context"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// checkItems verifies every responded item was part of the /select
// selection and maps to a fulfillment present in this message, then records
// the confirmed item list and the item->fulfillment map for later stages.
func (s *Stage) checkItems(ctx context.Context, txnID string, order model.Order, c *Collector) error {
	s.log.Info("checking item ids", zap.String("stage", StageOnSelect), zap.String("transaction_id", txnID))

	var selectedItems []string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.SelectItemList, &selectedItems); err != nil {
		return err
	}

	confirmed := []string{}
	itemFulfillments := map[string]string{}
	for _, item := range order.Items {
		if !contains(selectedItems, item.ID) {
			c.Addf(CodeMismatch, "invalid item id provided in /%s: %s", StageOnSelect, item.ID)
		} else {
			confirmed = append(confirmed, item.ID)
		}

		found := false
		for _, ff := range order.Fulfillments {
			if ff.ID == item.FulfillmentID {
				found = true
				break
			}
		}
		if !found {
			c.Addf(CodeMismatch, "fulfillment_id for item %s does not exist in order.fulfillments[]", item.ID)
		}

		itemFulfillments[item.ID] = item.FulfillmentID
	}

	// Independent writes, no ordering requirement between them.
	if err := facts.SetJSON(ctx, s.store, txnID, facts.SelectItemList, confirmed, s.ttl); err != nil {
		return err
	}
	if err := facts.SetJSON(ctx, s.store, txnID, facts.ItemFulfillments, itemFulfillments, s.ttl); err != nil {
		return err
	}
	return nil
}
