package rules

import "fmt"

// ValidationError is one conformance finding. Valid is always false on the
// wire; a fully conformant message yields an empty list instead.
type ValidationError struct {
	Valid       bool   `json:"valid"`
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// Collector is an append-only error sink. Checks never short-circuit on a
// finding; they keep appending so a single run reports every defect.
type Collector struct {
	errs []ValidationError
}

func (c *Collector) Add(code int, description string) {
	c.errs = append(c.errs, ValidationError{Valid: false, Code: code, Description: description})
}

func (c *Collector) Addf(code int, format string, args ...any) {
	c.Add(code, fmt.Sprintf(format, args...))
}

func (c *Collector) Len() int { return len(c.errs) }

// Errors returns the collected findings in append order. Never nil, so the
// result serializes as a JSON array.
func (c *Collector) Errors() []ValidationError {
	if c.errs == nil {
		return []ValidationError{}
	}
	return c.errs
}
