package provider

import (
	"time"
)

// Status is the outcome of a billing operation.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusPending
	StatusUserCanceled
	StatusUnauthorised
	StatusItemAlreadyOwned
	StatusItemUnavailable
	// StatusBillingUnavailable and StatusServiceUnavailable mean the provider
	// itself stopped working, not just this operation.
	StatusBillingUnavailable
	StatusServiceUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusPending:
		return "PENDING"
	case StatusUserCanceled:
		return "USER_CANCELED"
	case StatusUnauthorised:
		return "UNAUTHORISED"
	case StatusItemAlreadyOwned:
		return "ITEM_ALREADY_OWNED"
	case StatusItemUnavailable:
		return "ITEM_UNAVAILABLE"
	case StatusBillingUnavailable:
		return "BILLING_UNAVAILABLE"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Unavailable reports whether s signals that the provider stopped working.
func (s Status) Unavailable() bool {
	return s == StatusBillingUnavailable || s == StatusServiceUnavailable
}

type SkuType uint8

const (
	SkuTypeUnknown SkuType = iota
	SkuTypeConsumable
	SkuTypeEntitlement
	SkuTypeSubscription
)

func (t SkuType) String() string {
	switch t {
	case SkuTypeConsumable:
		return "consumable"
	case SkuTypeEntitlement:
		return "entitlement"
	case SkuTypeSubscription:
		return "subscription"
	default:
		return "unknown"
	}
}

// SkuDetails describes one catalog item as reported by a provider.
type SkuDetails struct {
	SKU         string  `json:"sku" msgpack:"sku" cbor:"sku" yaml:"sku"`
	Type        SkuType `json:"type" msgpack:"type" cbor:"type" yaml:"type"`
	Title       string  `json:"title,omitempty" msgpack:"title,omitempty" cbor:"title,omitempty" yaml:"title"`
	Description string  `json:"description,omitempty" msgpack:"description,omitempty" cbor:"description,omitempty" yaml:"description"`
	Price       string  `json:"price,omitempty" msgpack:"price,omitempty" cbor:"price,omitempty" yaml:"price"`
}

// Purchase is a purchase record as reported by a provider. Token identifies the
// purchase towards the backend (used by Consume).
type Purchase struct {
	SKU          string
	Type         SkuType
	Token        string
	OrderID      string
	PurchaseTime time.Time
	Canceled     bool
}

// Result is passed to Done when an operation completes. Only the payload field
// matching the operation is meaningful.
type Result struct {
	Status Status

	Purchase   *Purchase    // Purchase, Consume
	Purchases  []Purchase   // Inventory
	HasMore    bool         // Inventory
	SkuDetails []SkuDetails // SkuDetails

	// Err optionally carries the backend error behind a failure status.
	Err error
}
