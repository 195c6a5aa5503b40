package rules

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// checkFulfillments runs the per-fulfillment battery: id presence,
// turnaround time versus the quoted time-to-ship, serviceability state,
// category vocabulary, time windows, Buyer-Delivery order details and the
// tracking flag. It returns whether any fulfillment is non-serviceable; the
// quote check needs that to reject positive delivery charges.
func (s *Stage) checkFulfillments(ctx context.Context, txnID string, order model.Order, contextTime time.Time, c *Collector) (bool, error) {
	s.log.Info("checking fulfillments", zap.String("stage", StageOnSelect), zap.String("transaction_id", txnID))

	var timeToShip int64
	haveTTS, err := facts.GetJSON(ctx, s.store, txnID, facts.TimeToShip, &timeToShip)
	if err != nil {
		return false, err
	}

	fulfillmentIDs := []string{}
	tatSeconds := map[string]int64{}
	nonServiceable := false

	for i, ff := range order.Fulfillments {
		if ff.ID == "" {
			c.Addf(CodeMismatch, "fulfillment id must be present in /%s", StageOnSelect)
			continue
		}
		fulfillmentIDs = append(fulfillmentIDs, ff.ID)

		if ff.TAT == "" {
			c.Addf(CodeMismatch, "fulfillment TAT must be present for fulfillment ID: %s", ff.ID)
		} else if tat, derr := model.DurationSeconds(ff.TAT); derr != nil {
			c.Addf(CodeMismatch, "fulfillment TAT %q is not a valid duration for fulfillment ID: %s", ff.TAT, ff.ID)
		} else {
			tatSeconds[ff.ID] = tat
			// Strict: equal turnaround and time-to-ship is a violation.
			if haveTTS && tat <= timeToShip {
				c.Addf(CodeMismatch,
					"fulfillments[%d]/@ondc/org/TAT (O2D) in /%s can't be less than or equal to @ondc/org/time_to_ship (O2S) in /%s",
					i, StageOnSelect, StageOnSearch)
			}
		}

		stateCode := ""
		if ff.State != nil {
			stateCode = ff.State.Descriptor.Code
		}
		if stateCode == "" {
			c.Addf(CodeMismatch, "in fulfillment %d, descriptor code is mandatory in /%s", i, StageOnSelect)
		} else {
			if stateCode == stateNonServiceable {
				nonServiceable = true
			}
			if stateCode != stateServiceable && stateCode != stateNonServiceable {
				c.Addf(CodeMismatch,
					"pre-order fulfillment state codes should be '%s' or '%s' in fulfillments[%d].state.descriptor.code",
					stateServiceable, stateNonServiceable, i)
			}
		}

		if stateCode == stateServiceable && ff.Type == typeDelivery {
			if !contains(deliveryCategories, ff.Category) {
				c.Addf(CodeMismatch,
					"in fulfillment %d, @ondc/org/category is not a valid value in /%s and should be one of %v",
					i, StageOnSelect, deliveryCategories)
			}
		} else if ff.Type == typeSelfPickup {
			if !contains(pickupCategories, ff.Category) {
				c.Addf(CodeMismatch,
					"in fulfillment %d, @ondc/org/category is not a valid value in /%s and should be one of %v",
					i, StageOnSelect, pickupCategories)
			}
		}

		if ff.Type == typeDelivery || ff.Type == typeSelfPickup {
			s.checkTimeWindow(ff, contextTime, c)
		}

		if ff.Type == typeBuyerDelivery {
			checkOrderDetailsTag(ff, c)
		}

		if ff.Tracking == nil {
			c.Addf(CodeMismatch, "tracking must be present for fulfillment ID: %s in boolean form", ff.ID)
		} else if err := facts.SetJSON(ctx, s.store, txnID, facts.TrackingFact(ff.ID), *ff.Tracking, s.ttl); err != nil {
			// Fire-and-forget write; a lost tracking fact is not a finding.
			s.log.Warn("persist tracking fact", zap.String("fulfillment_id", ff.ID), zap.Error(err))
		}

		if ff.ID == order.Provider.ID {
			c.Addf(CodeMismatch, "fulfillment ID can't be equal to provider ID in /%s", StageOnSelect)
		}
	}

	if nonServiceable {
		e := order.Error
		if e == nil || e.Type != domainErrorType || e.Code != codeNonServiceable {
			c.Addf(CodeMismatch, "non-serviceable domain error should be provided when fulfillment is not serviceable")
		}
	}

	if err := facts.SetJSON(ctx, s.store, txnID, facts.FulfillmentIDList, fulfillmentIDs, s.ttl); err != nil {
		return nonServiceable, err
	}
	if err := facts.SetJSON(ctx, s.store, txnID, facts.FulfillmentTAT, tatSeconds, s.ttl); err != nil {
		return nonServiceable, err
	}
	return nonServiceable, nil
}

// checkTimeWindow validates the fulfillment window: start strictly before
// end, and start strictly after the context timestamp. Delivery windows
// live on end.time.range, Self-Pickup windows on start.time.range.
func (s *Stage) checkTimeWindow(ff model.Fulfillment, contextTime time.Time, c *Collector) {
	var r *model.TimeRange
	if ff.Type == typeDelivery {
		if ff.End != nil && ff.End.Time != nil {
			r = ff.End.Time.Range
		}
	} else {
		if ff.Start != nil && ff.Start.Time != nil {
			r = ff.Start.Time.Range
		}
	}
	if r == nil {
		return
	}
	start, startOK := parseRFC3339(r.Start)
	end, endOK := parseRFC3339(r.End)

	if startOK && endOK && !start.Before(end) {
		c.Addf(CodeTimeOrder, "start time must be less than end time in %s fulfillment", ff.Type)
	}
	if startOK && !start.After(contextTime) {
		c.Addf(CodeTimeOrder, "start time must be after context.timestamp in %s fulfillment", ff.Type)
	}
}

func checkOrderDetailsTag(ff model.Fulfillment, c *Collector) {
	var tag *model.Tag
	for i := range ff.Tags {
		if ff.Tags[i].Code == "order_details" {
			tag = &ff.Tags[i]
			break
		}
	}
	if tag == nil {
		c.Addf(CodeMissingTag, "missing 'order_details' tag in fulfillments when fulfillment.type is '%s'", typeBuyerDelivery)
		return
	}
	for _, field := range orderDetailsFields {
		value := ""
		for _, entry := range tag.List {
			if entry.Code == field {
				value = entry.Value
				break
			}
		}
		if strings.TrimSpace(value) == "" {
			c.Addf(CodeEmptyTagField, "'%s' is missing or empty in 'order_details' tag in fulfillments", field)
		}
	}
}

func parseRFC3339(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
