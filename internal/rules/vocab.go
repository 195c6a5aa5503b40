package rules

// Error codes from the retail conformance taxonomy. Stable; downstream
// reporting keys off them.
const (
	CodeMismatch            = 20000
	CodeTimeOrder           = 20001
	CodeAvailabilityPayload = 20006
	CodeMissingTag          = 20007
	CodeEmptyTagField       = 20008
)

// Stage names as they appear on the wire and in diagnostics.
const (
	StageSelect   = "select"
	StageOnSelect = "on_select"
	StageOnSearch = "on_search"
)

// Fulfillment state and type vocabulary.
const (
	stateServiceable    = "Serviceable"
	stateNonServiceable = "Non-serviceable"

	typeDelivery      = "Delivery"
	typeSelfPickup    = "Self-Pickup"
	typeBuyerDelivery = "Buyer-Delivery"
)

// Domain error vocabulary.
const (
	domainErrorType         = "DOMAIN-ERROR"
	codeNonServiceable      = "30009"
	codeReducedAvailability = "40002"
)

// paymentTitles maps the human-readable breakup title (lower-cased,
// trimmed) to the title_type it must carry.
var paymentTitles = map[string]string{
	"delivery charges": "delivery",
	"packing charges":  "packing",
	"tax":              "tax",
	"discount":         "discount",
	"convenience fee":  "misc",
	"offer":            "offer",
}

// Fulfillment category vocabularies, selected by fulfillment type.
var (
	deliveryCategories = []string{
		"Standard Delivery",
		"Express Delivery",
		"Immediate Delivery",
		"Same Day Delivery",
		"Next Day Delivery",
	}
	pickupCategories = []string{"Takeaway", "Kerbside"}
)

// taxExclusiveCategories lists item categories whose tax lines are not part
// of the selected-item subtotal.
var taxExclusiveCategories = []string{"F&B"}

// orderDetailsFields are the mandatory entries of the "order_details" tag on
// Buyer-Delivery fulfillments.
var orderDetailsFields = []string{
	"weight_unit", "weight_value", "dim_unit", "length", "breadth", "height",
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// difference returns the elements of a that are not in b, preserving order.
func difference(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
