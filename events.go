package unibill

// Kind tags every value that travels over the bus.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSetupRequest
	KindPurchaseRequest
	KindConsumeRequest
	KindInventoryRequest
	KindSkuDetailsRequest
	KindSetupStarted
	KindSetup
	KindPurchaseResponse
	KindConsumeResponse
	KindInventoryResponse
	KindSkuDetailsResponse
	KindProviderUnavailable
)

var kindNames = [...]string{
	KindUnknown:             "unknown",
	KindSetupRequest:        "setup_request",
	KindPurchaseRequest:     "purchase_request",
	KindConsumeRequest:      "consume_request",
	KindInventoryRequest:    "inventory_request",
	KindSkuDetailsRequest:   "sku_details_request",
	KindSetupStarted:        "setup_started",
	KindSetup:               "setup",
	KindPurchaseResponse:    "purchase_response",
	KindConsumeResponse:     "consume_response",
	KindInventoryResponse:   "inventory_response",
	KindSkuDetailsResponse:  "sku_details_response",
	KindProviderUnavailable: "provider_unavailable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Event is anything posted on the bus.
type Event interface {
	Kind() Kind
}

// Topic is what a subscription listens to. An event is delivered to every
// subscription whose topic appears in the event kind's rule row (see topicsFor).
type Topic string

const (
	TopicAll                 Topic = "all"
	TopicSetupRequest        Topic = "setup.request"
	TopicSetupStarted        Topic = "setup.started"
	TopicSetup               Topic = "setup.result"
	TopicRequest             Topic = "request"
	TopicPurchaseRequest     Topic = "request.purchase"
	TopicConsumeRequest      Topic = "request.consume"
	TopicInventoryRequest    Topic = "request.inventory"
	TopicSkuDetailsRequest   Topic = "request.sku_details"
	TopicResponse            Topic = "response"
	TopicPurchaseResponse    Topic = "response.purchase"
	TopicConsumeResponse     Topic = "response.consume"
	TopicInventoryResponse   Topic = "response.inventory"
	TopicSkuDetailsResponse  Topic = "response.sku_details"
	TopicProviderUnavailable Topic = "provider.unavailable"
)

// topicRules maps an event kind to every topic it also matches, most specific
// first. Setup requests are deliberately not part of TopicRequest: listeners
// observing billing requests only see purchase/consume/inventory/sku-details.
var topicRules = map[Kind][]Topic{
	KindSetupRequest:        {TopicSetupRequest, TopicAll},
	KindPurchaseRequest:     {TopicPurchaseRequest, TopicRequest, TopicAll},
	KindConsumeRequest:      {TopicConsumeRequest, TopicRequest, TopicAll},
	KindInventoryRequest:    {TopicInventoryRequest, TopicRequest, TopicAll},
	KindSkuDetailsRequest:   {TopicSkuDetailsRequest, TopicRequest, TopicAll},
	KindSetupStarted:        {TopicSetupStarted, TopicAll},
	KindSetup:               {TopicSetup, TopicAll},
	KindPurchaseResponse:    {TopicPurchaseResponse, TopicResponse, TopicAll},
	KindConsumeResponse:     {TopicConsumeResponse, TopicResponse, TopicAll},
	KindInventoryResponse:   {TopicInventoryResponse, TopicResponse, TopicAll},
	KindSkuDetailsResponse:  {TopicSkuDetailsResponse, TopicResponse, TopicAll},
	KindProviderUnavailable: {TopicProviderUnavailable, TopicAll},
}

var fallbackTopics = []Topic{TopicAll}

func topicsFor(k Kind) []Topic {
	if ts, ok := topicRules[k]; ok {
		return ts
	}
	return fallbackTopics
}
