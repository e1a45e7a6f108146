package openrtb_ext

import (
	"encoding/json"
)

// ExtBidResponse defines the contract for bidresponse.ext
type ExtBidResponse struct {
	// Errors defines the contract for bidresponse.ext.errors
	Errors map[BidderName][]ExtBidderMessage `json:"errors,omitempty"`
	// Warnings defines the contract for bidresponse.ext.warnings
	Warnings map[BidderName][]ExtBidderMessage `json:"warnings,omitempty"`
	// ResponseTimeMillis defines the contract for bidresponse.ext.responsetimemillis
	ResponseTimeMillis map[BidderName]int `json:"responsetimemillis,omitempty"`
	// Tmax defines the contract for bidresponse.ext.tmaxrequest
	Tmax int64 `json:"tmaxrequest,omitempty"`
}

// ExtBidderMessage defines an error object to be returned, consiting of a machine readable error code, and a human readable error message string.
type ExtBidderMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ExtBidPrebid defines the contract for bidresponse.seatbid.bid[i].ext.prebid
type ExtBidPrebid struct {
	Type BidType `json:"type"`
}

// ExtBid defines the contract for bidresponse.seatbid.bid[i].ext
type ExtBid struct {
	Prebid *ExtBidPrebid `json:"prebid,omitempty"`
	// Bidder is the ext the bidder attached to its own bid.
	Bidder json.RawMessage `json:"bidder,omitempty"`
}
