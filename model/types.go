package model

type ComplianceMode string

const (
	CompliancePermissive ComplianceMode = "permissive"
	ComplianceStrict     ComplianceMode = "strict"
)

// Result is the outcome of checking a fulfillment at an API boundary.
// Error is set exactly when Valid is false.
type Result struct {
	Valid bool        `json:"valid"`
	Error *CodedError `json:"error,omitempty"`
}

// Invalid returns a failed Result carrying err.
func Invalid(err *CodedError) Result {
	return Result{Valid: false, Error: err}
}

// ValidationRequest asks whether Fulfillment satisfies Condition for Message.
//
// Message is encoded as base64 by encoding/json.
type ValidationRequest struct {
	Fulfillment string         `json:"fulfillment"`
	Condition   string         `json:"condition"`
	Message     []byte         `json:"message,omitempty"`
	Compliance  ComplianceMode `json:"compliance,omitempty"`
}

// ConditionInfo is a flattened, JSON-friendly view of a condition.
type ConditionInfo struct {
	URI         string   `json:"uri"`
	LegacyURI   string   `json:"legacyUri,omitempty"`
	Type        string   `json:"type"`
	Fingerprint string   `json:"fingerprint"`
	Cost        uint64   `json:"cost"`
	Subtypes    []string `json:"subtypes,omitempty"`
	CID         string   `json:"cid,omitempty"`

	// FulfillmentCID addresses the DER encoding of the inspected fulfillment.
	FulfillmentCID string `json:"fulfillmentCid,omitempty"`
}
