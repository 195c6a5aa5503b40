package rules

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ocv/internal/facts"
	"ocv/internal/model"
)

// Stage validates the seller's on_select response against the facts the
// earlier select stage left behind, and records this stage's own facts for
// the stages that follow.
type Stage struct {
	store    facts.Store
	ttl      time.Duration
	checkCtx ContextChecker
	log      *zap.Logger
}

func NewStage(store facts.Store, ttl time.Duration, cc ContextChecker, log *zap.Logger) *Stage {
	if ttl <= 0 {
		ttl = facts.DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stage{store: store, ttl: ttl, checkCtx: cc, log: log}
}

// Validate runs every check and returns the full finding list. It never
// returns a Go error: context failure short-circuits with one entry, and an
// internal failure inside any single check becomes one synthetic entry
// while the remaining checks still run.
func (s *Stage) Validate(ctx context.Context, p model.Payload) []ValidationError {
	c := &Collector{}
	txnID := p.Context.TransactionID

	if err := s.checkCtx.Check(ctx, p.Context); err != nil {
		c.Add(CodeMismatch, err.Error())
		return c.Errors()
	}

	if err := facts.SetJSON(ctx, s.store, txnID, facts.RawOnSelect, p, s.ttl); err != nil {
		s.log.Error("persist raw payload", zap.String("transaction_id", txnID), zap.Error(err))
		c.Addf(CodeMismatch, "internal error: %v", err)
		return c.Errors()
	}

	order := p.Message.Order
	s.run("provider", CodeMismatch, c, func() error {
		return s.checkProvider(ctx, txnID, order, c)
	})
	s.run("items", CodeMismatch, c, func() error {
		return s.checkItems(ctx, txnID, order, c)
	})
	var nonServiceable bool
	s.run("fulfillments", CodeMismatch, c, func() error {
		var err error
		nonServiceable, err = s.checkFulfillments(ctx, txnID, order, p.Context.Timestamp, c)
		return err
	})
	s.run("quote", CodeMismatch, c, func() error {
		return s.checkQuote(ctx, txnID, order, nonServiceable, c)
	})
	s.run("error message", CodeAvailabilityPayload, c, func() error {
		return s.checkErrorPayload(ctx, txnID, order, c)
	})

	return c.Errors()
}

// run isolates one check: a returned error or a panic becomes exactly one
// synthetic finding with the check's default code, and the run continues.
func (s *Stage) run(name string, code int, c *Collector, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("check panicked", zap.String("check", name), zap.Any("panic", r))
			c.Addf(code, "error while checking %s: internal failure", name)
		}
	}()
	if err := fn(); err != nil {
		s.log.Error("check failed", zap.String("check", name), zap.Error(err))
		c.Addf(code, "error while checking %s: %v", name, err)
	}
}
