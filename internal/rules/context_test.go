package rules

import (
	"context"
	"testing"
	"time"

	"ocv/internal/model"
)

func TestBasicContextChecker(t *testing.T) {
	valid := model.Context{
		Action:        "on_select",
		TransactionID: "t1",
		MessageID:     "m1",
		Timestamp:     time.Now(),
	}
	if err := (BasicContextChecker{}).Check(context.Background(), valid); err != nil {
		t.Fatalf("valid context rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.Context)
	}{
		{"missing transaction id", func(c *model.Context) { c.TransactionID = "" }},
		{"missing message id", func(c *model.Context) { c.MessageID = "" }},
		{"missing timestamp", func(c *model.Context) { c.Timestamp = time.Time{} }},
		{"wrong action", func(c *model.Context) { c.Action = "select" }},
	}
	for _, tc := range cases {
		c := valid
		tc.mutate(&c)
		if err := (BasicContextChecker{}).Check(context.Background(), c); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}
