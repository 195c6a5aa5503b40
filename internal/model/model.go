package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload is the full stage input: shared context plus the order message.
type Payload struct {
	Context Context `json:"context"`
	Message Message `json:"message"`
}

// Context carries the transaction-level fields shared by every stage.
type Context struct {
	Domain        string    `json:"domain,omitempty"`
	Action        string    `json:"action"`
	City          string    `json:"city,omitempty"`
	TransactionID string    `json:"transaction_id"`
	MessageID     string    `json:"message_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type Message struct {
	Order Order `json:"order"`
}

// Order is the seller's response to the buyer's item selection.
type Order struct {
	Provider     Provider      `json:"provider"`
	Items        []Item        `json:"items"`
	Fulfillments []Fulfillment `json:"fulfillments"`
	Quote        Quote         `json:"quote"`
	Error        *DomainError  `json:"error,omitempty"`
}

type Provider struct {
	ID        string     `json:"id"`
	Locations []Location `json:"locations,omitempty"`
}

type Location struct {
	ID string `json:"id"`
}

type Item struct {
	ID            string `json:"id"`
	FulfillmentID string `json:"fulfillment_id"`
	ParentItemID  string `json:"parent_item_id,omitempty"`
}

// Fulfillment describes one delivery/pickup option offered by the seller.
// TAT and Category use the "@ondc/org/" extension keys on the wire.
type Fulfillment struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	TAT      string            `json:"@ondc/org/TAT,omitempty"`
	Category string            `json:"@ondc/org/category,omitempty"`
	Tracking *bool             `json:"tracking,omitempty"`
	State    *FulfillmentState `json:"state,omitempty"`
	Start    *FulfillmentStop  `json:"start,omitempty"`
	End      *FulfillmentStop  `json:"end,omitempty"`
	Tags     []Tag             `json:"tags,omitempty"`
}

type FulfillmentState struct {
	Descriptor Descriptor `json:"descriptor"`
}

type Descriptor struct {
	Code string `json:"code"`
}

type FulfillmentStop struct {
	Time *StopTime `json:"time,omitempty"`
}

type StopTime struct {
	Range *TimeRange `json:"range,omitempty"`
}

// TimeRange bounds are RFC3339 strings on the wire; unparseable bounds are
// treated as absent by the checks, not as failures.
type TimeRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Tag struct {
	Code string     `json:"code"`
	List []TagEntry `json:"list,omitempty"`
}

type TagEntry struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

type Quote struct {
	Price   Price         `json:"price"`
	Breakup []BreakupLine `json:"breakup"`
	TTL     string        `json:"ttl,omitempty"`
}

// Price values travel as decimal strings.
type Price struct {
	Currency string `json:"currency,omitempty"`
	Value    string `json:"value"`
}

// BreakupLine is one line of the quote decomposition. TitleType, ItemID and
// ItemQuantity use the "@ondc/org/" extension keys on the wire.
type BreakupLine struct {
	Title        string       `json:"title"`
	TitleType    string       `json:"@ondc/org/title_type"`
	ItemID       string       `json:"@ondc/org/item_id"`
	ItemQuantity *CountHolder `json:"@ondc/org/item_quantity,omitempty"`
	Price        Price        `json:"price"`
	Item         *BreakupItem `json:"item,omitempty"`
}

type CountHolder struct {
	Count FlexInt `json:"count"`
}

// BreakupItem carries per-item detail on "item" lines. Quantity is kept
// opaque; it is stripped before the quote is persisted for later stages.
type BreakupItem struct {
	Price        *Price          `json:"price,omitempty"`
	Quantity     json.RawMessage `json:"quantity,omitempty"`
	ParentItemID string          `json:"parent_item_id,omitempty"`
}

// DomainError is the message-level business error block.
type DomainError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FlexInt decodes a JSON number or a numeric string. Seller platforms are
// inconsistent about quoting counts.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parse count %q: %w", s, err)
	}
	*f = FlexInt(n)
	return nil
}
