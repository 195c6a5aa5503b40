package rules

import (
	"context"
	"fmt"

	"ocv/internal/model"
)

// ContextChecker verifies the shared context block before any stage check
// runs. The full header/sequence validation lives outside this module; the
// stage only depends on this interface.
type ContextChecker interface {
	Check(ctx context.Context, c model.Context) error
}

// BasicContextChecker enforces the minimal fields the stage itself cannot
// work without. It stands in for the shared checker in local runs and tests.
type BasicContextChecker struct{}

func (BasicContextChecker) Check(_ context.Context, c model.Context) error {
	switch {
	case c.TransactionID == "":
		return fmt.Errorf("context/transaction_id is missing")
	case c.MessageID == "":
		return fmt.Errorf("context/message_id is missing")
	case c.Timestamp.IsZero():
		return fmt.Errorf("context/timestamp is missing")
	case c.Action != StageOnSelect:
		return fmt.Errorf("context/action should be %s, got %q", StageOnSelect, c.Action)
	}
	return nil
}
