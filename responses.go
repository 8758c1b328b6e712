package unibill

import (
	"slices"

	"github.com/unkn0wn-root/unibill/provider"
)

// Response is the outcome of a billing Request. It always references the
// request that produced it.
type Response interface {
	Event
	Status() provider.Status
	// Provider is the identity of the provider that handled the request, nil
	// when no provider was active.
	Provider() *provider.Info
	BillingRequest() Request
	IsSuccessful() bool
}

type responseBase struct {
	status provider.Status
	info   *provider.Info
}

func (r responseBase) Status() provider.Status  { return r.status }
func (r responseBase) Provider() *provider.Info { return r.info }
func (r responseBase) IsSuccessful() bool       { return r.status == provider.StatusSuccess }

func newResponseBase(status provider.Status, p provider.Provider) responseBase {
	if p == nil {
		return responseBase{status: status}
	}
	info := p.Info()
	return responseBase{status: status, info: &info}
}

// PurchaseResponse carries the purchase on success.
type PurchaseResponse struct {
	responseBase
	request  *PurchaseRequest
	purchase *provider.Purchase
}

// NewPurchaseResponse builds the response for req from a provider result.
// p may be nil when no provider handled the request.
func NewPurchaseResponse(req *PurchaseRequest, p provider.Provider, res provider.Result) *PurchaseResponse {
	return &PurchaseResponse{
		responseBase: newResponseBase(res.Status, p),
		request:      req,
		purchase:     clonePurchase(res.Purchase),
	}
}

func (*PurchaseResponse) Kind() Kind                     { return KindPurchaseResponse }
func (r *PurchaseResponse) Request() *PurchaseRequest    { return r.request }
func (r *PurchaseResponse) BillingRequest() Request      { return r.request }
func (r *PurchaseResponse) Purchase() *provider.Purchase { return clonePurchase(r.purchase) }

// ConsumeResponse reports the outcome of a ConsumeRequest.
type ConsumeResponse struct {
	responseBase
	request *ConsumeRequest
}

// NewConsumeResponse builds the response for req from a provider result.
func NewConsumeResponse(req *ConsumeRequest, p provider.Provider, res provider.Result) *ConsumeResponse {
	return &ConsumeResponse{responseBase: newResponseBase(res.Status, p), request: req}
}

func (*ConsumeResponse) Kind() Kind                 { return KindConsumeResponse }
func (r *ConsumeResponse) Request() *ConsumeRequest { return r.request }
func (r *ConsumeResponse) BillingRequest() Request  { return r.request }

// InventoryResponse holds one page of owned purchases. HasMore reports
// whether a follow-up Inventory(false) would return another page.
type InventoryResponse struct {
	responseBase
	request   *InventoryRequest
	purchases []provider.Purchase
	hasMore   bool
}

// NewInventoryResponse builds the response for req from a provider result.
func NewInventoryResponse(req *InventoryRequest, p provider.Provider, res provider.Result) *InventoryResponse {
	return &InventoryResponse{
		responseBase: newResponseBase(res.Status, p),
		request:      req,
		purchases:    slices.Clone(res.Purchases),
		hasMore:      res.HasMore,
	}
}

func (*InventoryResponse) Kind() Kind                       { return KindInventoryResponse }
func (r *InventoryResponse) Request() *InventoryRequest     { return r.request }
func (r *InventoryResponse) BillingRequest() Request        { return r.request }
func (r *InventoryResponse) Purchases() []provider.Purchase { return slices.Clone(r.purchases) }
func (r *InventoryResponse) HasMore() bool                  { return r.hasMore }

// SkuDetailsResponse holds the details the provider knows about. Unknown skus
// are omitted.
type SkuDetailsResponse struct {
	responseBase
	request *SkuDetailsRequest
	details []provider.SkuDetails
}

// NewSkuDetailsResponse builds the response for req from a provider result.
func NewSkuDetailsResponse(req *SkuDetailsRequest, p provider.Provider, res provider.Result) *SkuDetailsResponse {
	return &SkuDetailsResponse{
		responseBase: newResponseBase(res.Status, p),
		request:      req,
		details:      slices.Clone(res.SkuDetails),
	}
}

func (*SkuDetailsResponse) Kind() Kind                          { return KindSkuDetailsResponse }
func (r *SkuDetailsResponse) Request() *SkuDetailsRequest       { return r.request }
func (r *SkuDetailsResponse) BillingRequest() Request           { return r.request }
func (r *SkuDetailsResponse) SkuDetails() []provider.SkuDetails { return slices.Clone(r.details) }

// newFailedResponse builds the response for req with status and no provider.
// Setup requests have no response and yield nil.
func newFailedResponse(req Request, status provider.Status) Response {
	return newResponse(req, nil, provider.Result{Status: status})
}

func newResponse(req Request, p provider.Provider, res provider.Result) Response {
	switch r := req.(type) {
	case *PurchaseRequest:
		return NewPurchaseResponse(r, p, res)
	case *ConsumeRequest:
		return NewConsumeResponse(r, p, res)
	case *InventoryRequest:
		return NewInventoryResponse(r, p, res)
	case *SkuDetailsRequest:
		return NewSkuDetailsResponse(r, p, res)
	default:
		return nil
	}
}

func clonePurchase(p *provider.Purchase) *provider.Purchase {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
