package openrtb_ext

import (
	"encoding/json"
)

// ExtImpBidder is the shape of request.imp[i].ext once the auction has narrowed it to a single bidder.
// Bidders should unmarshal Bidder using their corresponding ExtImp{Bidder} struct.
type ExtImpBidder struct {
	Prebid *ExtImpPrebid `json:"prebid,omitempty"`

	Bidder json.RawMessage `json:"bidder"`
}

// ExtImpPrebid defines the contract for bidrequest.imp[i].ext.prebid
type ExtImpPrebid struct {
	// Bidder holds per-bidder params when they are not written directly under imp.ext.
	Bidder map[string]json.RawMessage `json:"bidder,omitempty"`
}
