package unibill

import (
	"slices"
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// RequestType groups requests for throttling. Two requests are "the same type"
// iff their RequestType is equal.
type RequestType uint8

const (
	RequestSetup RequestType = iota
	RequestPurchase
	RequestConsume
	RequestInventory
	RequestSkuDetails
)

// requestTypes lists every type; used to size per-type state.
var requestTypes = [...]RequestType{RequestSetup, RequestPurchase, RequestConsume, RequestInventory, RequestSkuDetails}

func (t RequestType) String() string {
	switch t {
	case RequestSetup:
		return "setup"
	case RequestPurchase:
		return "purchase"
	case RequestConsume:
		return "consume"
	case RequestInventory:
		return "inventory"
	case RequestSkuDetails:
		return "sku_details"
	default:
		return "unknown"
	}
}

// Request is one caller-issued operation. The set of implementations is closed:
// *SetupRequest, *PurchaseRequest, *ConsumeRequest, *InventoryRequest and
// *SkuDetailsRequest.
type Request interface {
	Event
	Type() RequestType
	Time() time.Time
	request()
}

type requestBase struct {
	at time.Time
}

func (r requestBase) Time() time.Time { return r.at }
func (requestBase) request()          {}

// SetupRequest asks for a provider selection round.
type SetupRequest struct{ requestBase }

// NewSetupRequest stamps the request with the current time.
func NewSetupRequest() *SetupRequest {
	return &SetupRequest{requestBase{at: time.Now()}}
}

func (*SetupRequest) Kind() Kind        { return KindSetupRequest }
func (*SetupRequest) Type() RequestType { return RequestSetup }

// PurchaseRequest buys one sku. SkuTypeUnknown lets the provider decide;
// Subscribe uses SkuTypeSubscription.
type PurchaseRequest struct {
	requestBase
	sku     string
	skuType provider.SkuType
}

// NewPurchaseRequest stamps the request with the current time. The sku is not
// validated here; Billing.Purchase rejects empty skus.
func NewPurchaseRequest(sku string, skuType provider.SkuType) *PurchaseRequest {
	return &PurchaseRequest{requestBase: requestBase{at: time.Now()}, sku: sku, skuType: skuType}
}

func (*PurchaseRequest) Kind() Kind        { return KindPurchaseRequest }
func (*PurchaseRequest) Type() RequestType { return RequestPurchase }

// SKU is the item to buy.
func (r *PurchaseRequest) SKU() string { return r.sku }

// SkuType is the requested item type; SkuTypeUnknown for plain purchases.
func (r *PurchaseRequest) SkuType() provider.SkuType { return r.skuType }

// ConsumeRequest consumes a purchase previously reported by the provider.
type ConsumeRequest struct {
	requestBase
	purchase provider.Purchase
}

// NewConsumeRequest keeps a copy of p.
func NewConsumeRequest(p provider.Purchase) *ConsumeRequest {
	return &ConsumeRequest{requestBase: requestBase{at: time.Now()}, purchase: p}
}

func (*ConsumeRequest) Kind() Kind        { return KindConsumeRequest }
func (*ConsumeRequest) Type() RequestType { return RequestConsume }

// Purchase is the purchase to consume, as passed to Billing.Consume.
func (r *ConsumeRequest) Purchase() provider.Purchase { return r.purchase }

// InventoryRequest lists owned purchases, one page per request.
type InventoryRequest struct {
	requestBase
	startOver bool
}

// NewInventoryRequest stamps the request with the current time.
func NewInventoryRequest(startOver bool) *InventoryRequest {
	return &InventoryRequest{requestBase: requestBase{at: time.Now()}, startOver: startOver}
}

func (*InventoryRequest) Kind() Kind        { return KindInventoryRequest }
func (*InventoryRequest) Type() RequestType { return RequestInventory }

// StartOver asks the provider to restart paging from the first page.
func (r *InventoryRequest) StartOver() bool { return r.startOver }

// SkuDetailsRequest loads catalog details for a set of skus.
type SkuDetailsRequest struct {
	requestBase
	skus []string
}

// NewSkuDetailsRequest de-duplicates skus and keeps them sorted.
func NewSkuDetailsRequest(skus ...string) *SkuDetailsRequest {
	set := slices.Clone(skus)
	slices.Sort(set)
	set = slices.Compact(set)
	return &SkuDetailsRequest{requestBase: requestBase{at: time.Now()}, skus: set}
}

func (*SkuDetailsRequest) Kind() Kind        { return KindSkuDetailsRequest }
func (*SkuDetailsRequest) Type() RequestType { return RequestSkuDetails }

// SKUs returns a copy of the requested sku set.
func (r *SkuDetailsRequest) SKUs() []string { return slices.Clone(r.skus) }
