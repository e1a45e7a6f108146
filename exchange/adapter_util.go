package exchange

import (
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// BuildAdapters builds every enabled bidder named in infos and wraps it for the dispatcher.
func BuildAdapters(client *http.Client, cfg *config.Configuration, infos config.BidderInfos, me metrics.MetricsEngine, clk clock.Clock) (map[openrtb_ext.BidderName]AdaptedBidder, []error) {
	server := config.Server{ExternalUrl: cfg.ExternalURL}
	bidders, errs := buildBidders(infos, cfg.Adapters, newAdapterBuilders(), server)

	if len(errs) > 0 {
		return nil, errs
	}

	exchangeBidders := make(map[openrtb_ext.BidderName]AdaptedBidder, len(bidders))
	for bidderName, bidder := range bidders {
		exchangeBidders[bidderName] = AdaptBidder(bidder, client, cfg, me, bidderName, clk)
	}
	return exchangeBidders, nil
}

func buildBidders(infos config.BidderInfos, adapterConfigs map[string]config.Adapter, builders map[openrtb_ext.BidderName]adapters.Builder, server config.Server) (map[openrtb_ext.BidderName]adapters.Bidder, []error) {
	bidders := make(map[openrtb_ext.BidderName]adapters.Bidder)
	var errs []error

	for bidder, info := range infos {
		bidderName, bidderNameFound := openrtb_ext.NormalizeBidderName(bidder)
		if !bidderNameFound {
			errs = append(errs, fmt.Errorf("%v: unknown bidder", bidder))
			continue
		}

		builder, builderFound := builders[bidderName]
		if !builderFound {
			errs = append(errs, fmt.Errorf("%v: builder not registered", bidder))
			continue
		}

		adapterInfo := buildAdapterInfo(info, adapterConfigs[string(bidderName)])
		if info.Disabled || adapterInfo.Disabled {
			continue
		}

		bidderInstance, builderErr := builder(bidderName, adapterInfo, server)
		if builderErr != nil {
			errs = append(errs, fmt.Errorf("%v: %v", bidder, builderErr))
			continue
		}
		bidders[bidderName] = adapters.BuildInfoAwareBidder(bidderInstance, info)
	}
	return bidders, errs
}

// buildAdapterInfo layers the host's adapter config over the bidder's static info.
func buildAdapterInfo(info config.BidderInfo, adapterConfig config.Adapter) config.Adapter {
	adapter := adapterConfig
	if adapter.Endpoint == "" {
		adapter.Endpoint = info.Endpoint
	}
	return adapter
}

// GetActiveBidders returns the names of the bidders which are not disabled, in registration order.
func GetActiveBidders(infos config.BidderInfos) []openrtb_ext.BidderName {
	var active []openrtb_ext.BidderName
	for _, name := range openrtb_ext.CoreBidderNames() {
		if info, ok := infos[string(name)]; ok && !info.Disabled {
			active = append(active, name)
		}
	}
	return active
}
