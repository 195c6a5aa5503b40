package rules

import (
	"context"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// checkProvider verifies that provider identity and primary location are
// unchanged since the select stage.
func (s *Stage) checkProvider(ctx context.Context, txnID string, order model.Order, c *Collector) error {
	s.log.Info("checking provider", zap.String("stage", StageOnSelect), zap.String("transaction_id", txnID))

	var providerID string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ProviderID, &providerID); err != nil {
		return err
	}
	var providerLoc string
	if _, err := facts.GetJSON(ctx, s.store, txnID, facts.ProviderLocation, &providerLoc); err != nil {
		return err
	}

	if providerID != order.Provider.ID {
		c.Addf(CodeMismatch, "provider.id mismatches in /%s and /%s", StageSelect, StageOnSelect)
	}

	var loc string
	if len(order.Provider.Locations) > 0 {
		loc = order.Provider.Locations[0].ID
	}
	if loc != providerLoc {
		c.Addf(CodeMismatch, "provider.locations[0].id mismatches in /%s and /%s", StageSelect, StageOnSelect)
	}
	return nil
}
