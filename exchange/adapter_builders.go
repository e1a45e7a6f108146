package exchange

import (
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/adapters/mobilefuse"
	"github.com/prebid/prebid-mediation/adapters/rubicon"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// newAdapterBuilders returns the builders for every core bidder.
func newAdapterBuilders() map[openrtb_ext.BidderName]adapters.Builder {
	return map[openrtb_ext.BidderName]adapters.Builder{
		openrtb_ext.BidderMobilefuse: mobilefuse.Builder,
		openrtb_ext.BidderRubicon:    rubicon.Builder,
	}
}
