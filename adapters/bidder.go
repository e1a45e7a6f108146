package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// Bidder describes how to connect to external demand.
type Bidder interface {
	// MakeRequests makes the HTTP requests which should be made to fetch bids.
	//
	// Bidder implementations can assume that the incoming BidRequest has:
	//
	//   1. Only {Imp.Type, Platform} combinations which are valid, as defined by the static/bidder-info.{bidder}.yaml file.
	//   2. Imp.Ext of the form {"bidder": params}, where params have been validated against the static/bidder-params/{bidder}.json JSON Schema.
	//
	// nil return values are acceptable, but nil elements *inside* those slices are not.
	//
	// The errors should contain a list of errors which explain why this bidder's bids will be
	// "subpar" in some way. For example: the request contained ad types which this bidder doesn't support.
	//
	// If the error is caused by bad user input, return an errortypes.BadInput.
	MakeRequests(request *openrtb2.BidRequest, reqInfo *ExtraRequestInfo) ([]*RequestData, []error)

	// MakeBids unpacks the server's response into Bids.
	//
	// The internalRequest is the request the auction handed to MakeRequests. The externalRequest is the
	// RequestData which produced this response; its Payload is the structured request actually sent.
	//
	// The bids can be nil (for no bids), but should not contain nil elements.
	//
	// If the error was caused by bad user input, return an errortypes.BadInput.
	// If the error was caused by a bad server response, return an errortypes.BadServerResponse
	MakeBids(internalRequest *openrtb2.BidRequest, externalRequest *RequestData, response *ResponseData) (*BidderResponse, []error)
}

// Builder is a function which creates a Bidder from its adapter configuration.
type Builder func(openrtb_ext.BidderName, config.Adapter, config.Server) (Bidder, error)

// ExtraRequestInfo carries auction-level data which adapters may need but which does not belong on the request.
type ExtraRequestInfo struct {
	// CurrencyDefault is the currency assumed when an upstream omits bidresponse.cur.
	CurrencyDefault string
}

// NewExtraRequestInfo builds ExtraRequestInfo with the host default currency.
func NewExtraRequestInfo(currencyDefault string) ExtraRequestInfo {
	return ExtraRequestInfo{CurrencyDefault: currencyDefault}
}

// RequestData packages together the fields needed to make an http.Request.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
	ImpIDs  []string

	// Payload is the structured request which was serialized into Body.
	Payload *openrtb2.BidRequest
}

// ResponseData packages together information from the server's http.Response.
//
// This exists so that prebid-mediation can centralize the HTTP client, and the adapters never
// need to touch transport details.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// BidderResponse wraps the server's response with the list of bids and the currency used.
type BidderResponse struct {
	Currency string
	Bids     []*TypedBid
}

// NewBidderResponseWithBidsCapacity create a new BidderResponse initialising the bids array capacity and the default currency value
// to "USD".
//
// By default, every bid response is assumed to be in USD. Bidders which may return bids in other
// currencies should set Currency from bidresponse.cur.
func NewBidderResponseWithBidsCapacity(bidsCapacity int) *BidderResponse {
	return &BidderResponse{
		Currency: DefaultCurrency,
		Bids:     make([]*TypedBid, 0, bidsCapacity),
	}
}

// NewBidderResponse create a new BidderResponse initialising the bids array and the default currency value
// to "USD".
func NewBidderResponse() *BidderResponse {
	return NewBidderResponseWithBidsCapacity(0)
}

// TypedBid packages together an openrtb2.Bid and its media type.
//
// TypedBid.Bid.Ext will become "response.seatbid[i].bid.ext.bidder" in the final response.
// TypedBid.BidType will become "response.seatbid[i].bid.ext.prebid.type" in the final response.
type TypedBid struct {
	Bid     *openrtb2.Bid
	BidType openrtb_ext.BidType
	Seat    openrtb_ext.BidderName
}

// ExtImpBidder unmarshals imp.ext into the {"bidder": params} shape the auction hands to adapters.
func ExtImpBidder(imp *openrtb2.Imp) (openrtb_ext.ExtImpBidder, error) {
	var bidderExt openrtb_ext.ExtImpBidder
	err := json.Unmarshal(imp.Ext, &bidderExt)
	return bidderExt, err
}

// RequireParams returns an error naming the first of fields which params lacks or sets to null.
func RequireParams(params json.RawMessage, fields ...string) error {
	for _, field := range fields {
		_, dataType, _, err := jsonparser.Get(params, field)
		if err != nil || dataType == jsonparser.Null {
			return fmt.Errorf("missing required field %s", field)
		}
	}
	return nil
}
