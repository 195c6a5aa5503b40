package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// checkQuote reconciles the quote breakup: vocabulary of every line,
// per-item unit price x quantity, line ids against selected items and
// fulfillments, the grand total against quote.price.value and the item
// subtotal against the price recorded at the select stage.
func (s *Stage) checkQuote(ctx context.Context, txnID string, order model.Order, nonServiceable bool, c *Collector) error {
	s.log.Info("checking quote", zap.String("stage", StageOnSelect), zap.String("transaction_id", txnID))

	var selectedQty map[string]int
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ItemsIDList, &selectedQty); err != nil {
		return err
	}
	var itemCategories map[string]string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ItemCategories, &itemCategories); err != nil {
		return err
	}
	var fulfillmentIDs []string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.FulfillmentIDList, &fulfillmentIDs); err != nil {
		return err
	}
	var itemFulfillments map[string]string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ItemFulfillments, &itemFulfillments); err != nil {
		return err
	}

	// The select stage stores the total as a JSON number; anything else
	// reads as "total unknown", which only skips the final comparison.
	var selectedPrice decimal.Decimal
	haveSelectedPrice := false
	if b, ok, err := s.store.Get(ctx, txnID, facts.SelectedPrice); err != nil {
		return fmt.Errorf("get %s: %w", facts.SelectedPrice, err)
	} else if ok {
		var f float64
		if json.Unmarshal(b, &f) == nil {
			selectedPrice = decimal.NewFromFloat(f)
			haveSelectedPrice = true
		}
	}

	if nonServiceable {
		for _, line := range order.Quote.Breakup {
			if line.TitleType != "delivery" {
				continue
			}
			if v, ok := parsePrice(line.Price.Value); ok && v.IsPositive() {
				c.Add(CodeMismatch, "delivery charges not applicable for non-serviceable locations")
			}
		}
	}

	breakupTotal := decimal.Zero
	itemsTotal := decimal.Zero
	itemPrices := map[string]decimal.Decimal{}

	for i, line := range order.Quote.Breakup {
		titleType := line.TitleType
		itemID := line.ItemID

		named := titleType != "item" && titleType != "offer"
		if named && !isPaymentTitleType(titleType) {
			c.Addf(CodeMismatch, "quote breakup payment title type %q is not as per the API contract", titleType)
		}
		if named {
			mapped, known := paymentTitles[strings.ToLower(strings.TrimSpace(line.Title))]
			if !known {
				c.Addf(CodeMismatch, "quote breakup payment title %q is not as per the API contract", line.Title)
			} else if mapped != titleType {
				c.Addf(CodeMismatch, "quote breakup payment title %q comes under the title type %q", line.Title, mapped)
			}
		}

		if titleType == "item" {
			s.log.Debug("item line",
				zap.String("item_id", itemID),
				zap.Any("item_fulfillments", itemFulfillments))
			_, inSelection := selectedQty[itemID]
			if !inSelection {
				c.Addf(CodeMismatch, "item with id: %s in quote.breakup[%d] does not exist in items[]", itemID, i)
			}
			count := 0
			if line.ItemQuantity != nil {
				count = int(line.ItemQuantity.Count)
			}
			countMismatch := inSelection && count != selectedQty[itemID]
			if countMismatch {
				c.Addf(CodeMismatch, "count of item with id: %s does not match in /%s and /%s", itemID, StageSelect, StageOnSelect)
			}
			if line.Item == nil || line.Item.Price == nil {
				c.Addf(CodeMismatch, "item's unit price missing in quote.breakup for item id %s", itemID)
			} else if !countMismatch {
				// A wrong count already explains a broken line total; only
				// check the unit math when the count itself is right.
				unit, uok := parsePrice(line.Item.Price.Value)
				total, tok := parsePrice(line.Price.Value)
				if !uok || !tok || !unit.Mul(decimal.NewFromInt(int64(count))).Equal(total) {
					c.Addf(CodeMismatch, "item's unit and total price mismatch for id: %s", itemID)
				}
			}
			if total, ok := parsePrice(line.Price.Value); ok {
				itemPrices[itemID] = total.Abs()
			}
		}

		if titleType == "tax" || titleType == "discount" {
			if _, ok := selectedQty[itemID]; !ok {
				c.Addf(CodeMismatch, "item with id: %s in quote.breakup[%d] does not exist in items[] (should be a valid item id)", itemID, i)
			}
		}

		if titleType == "packing" || titleType == "delivery" || titleType == "misc" {
			if !contains(fulfillmentIDs, itemID) {
				c.Addf(CodeMismatch, "invalid id: %s in %s line item (should be a valid fulfillment_id)", itemID, titleType)
			}
		}

		if v, ok := parsePrice(line.Price.Value); ok {
			breakupTotal = breakupTotal.Add(v)
			if titleType == "item" ||
				(titleType == "tax" && !contains(taxExclusiveCategories, itemCategories[itemID])) {
				itemsTotal = itemsTotal.Add(v)
			}
		}
	}

	quotedPrice, quotedOK := parsePrice(order.Quote.Price.Value)
	if !quotedOK || !breakupTotal.Round(0).Equal(quotedPrice.Round(0)) {
		c.Addf(CodeMismatch, "quote.price.value %s does not match with the price breakup %s",
			order.Quote.Price.Value, breakupTotal.String())
	}
	if haveSelectedPrice && !itemsTotal.Equal(selectedPrice) {
		c.Addf(CodeMismatch, "quoted price in /%s INR %s does not match with the total price of items in /%s INR %s",
			StageOnSelect, itemsTotal.String(), StageSelect, selectedPrice.String())
	}

	if err := facts.SetJSON(ctx, s.store, txnID, facts.QuoteObject, strippedQuote(order.Quote), s.ttl); err != nil {
		return err
	}
	quotedF, _ := quotedPrice.Float64()
	if err := facts.SetJSON(ctx, s.store, txnID, facts.QuotedPrice, quotedF, s.ttl); err != nil {
		return err
	}
	priceMap := map[string]float64{}
	for id, d := range itemPrices {
		priceMap[id], _ = d.Float64()
	}
	if err := facts.SetJSON(ctx, s.store, txnID, facts.ItemPriceMap, priceMap, s.ttl); err != nil {
		return err
	}

	// Every breakup parent-item reference must point at an item actually
	// present in this response.
	var parentIDs []string
	for _, item := range order.Items {
		if item.ParentItemID != "" {
			parentIDs = append(parentIDs, item.ParentItemID)
		}
	}
	for i, line := range order.Quote.Breakup {
		if line.Item == nil || line.Item.ParentItemID == "" {
			continue
		}
		if !contains(parentIDs, line.Item.ParentItemID) {
			c.Addf(CodeMismatch, "parent_item_id '%s' in quote.breakup[%d] is not present in items array", line.Item.ParentItemID, i)
		}
	}
	return nil
}

// strippedQuote clones the quote with item-line quantity sub-fields removed,
// the shape later stages expect to read back.
func strippedQuote(q model.Quote) model.Quote {
	out := q
	out.Breakup = make([]model.BreakupLine, len(q.Breakup))
	for i, line := range q.Breakup {
		if line.TitleType == "item" && line.Item != nil && line.Item.Quantity != nil {
			item := *line.Item
			item.Quantity = nil
			line.Item = &item
		}
		out.Breakup[i] = line
	}
	return out
}

func isPaymentTitleType(titleType string) bool {
	for _, v := range paymentTitles {
		if v == titleType {
			return true
		}
	}
	return false
}

func parsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
