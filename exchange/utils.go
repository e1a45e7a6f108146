package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

const prebidExtKey = "prebid"

// splitImps narrows every imp to each bidder it names. A bidder is named either directly under
// imp.ext or under imp.ext.prebid.bidder; the latter wins when both are present. The imps handed
// to a bidder carry {"bidder": params} as their ext. Imps keep their request order.
func splitImps(imps []openrtb2.Imp, active map[openrtb_ext.BidderName]struct{}) (map[openrtb_ext.BidderName][]openrtb2.Imp, []error) {
	bidderImps := make(map[openrtb_ext.BidderName][]openrtb2.Imp)
	var errs []error

	for i, imp := range imps {
		params, err := extractBidderParams(imp.Ext)
		if err != nil {
			errs = append(errs, &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext is invalid: %v", i, err)})
			continue
		}

		for _, bidderName := range openrtb_ext.CoreBidderNames() {
			bidderParams, ok := params[bidderName]
			if !ok {
				continue
			}
			if _, isActive := active[bidderName]; !isActive {
				continue
			}

			impExt, err := json.Marshal(openrtb_ext.ExtImpBidder{Bidder: bidderParams})
			if err != nil {
				errs = append(errs, &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.%s: %v", i, bidderName, err)})
				continue
			}

			bidderImp := imp
			bidderImp.Ext = impExt
			bidderImps[bidderName] = append(bidderImps[bidderName], bidderImp)
		}
	}

	return bidderImps, errs
}

// extractBidderParams reads the per-bidder params out of one imp.ext. Keys which are not bidders
// are ignored.
func extractBidderParams(ext json.RawMessage) (map[openrtb_ext.BidderName]json.RawMessage, error) {
	params := make(map[openrtb_ext.BidderName]json.RawMessage)
	if len(ext) == 0 {
		return params, nil
	}

	prebidParams := make(map[openrtb_ext.BidderName]json.RawMessage)
	err := jsonparser.ObjectEach(ext, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		if string(key) == prebidExtKey {
			if dataType != jsonparser.Object {
				return nil
			}
			return collectBidderParams(value, prebidParams, "bidder")
		}
		return addBidderParams(key, value, dataType, params)
	})
	if err != nil {
		return nil, err
	}

	for name, value := range prebidParams {
		params[name] = value
	}
	return params, nil
}

func collectBidderParams(data []byte, params map[openrtb_ext.BidderName]json.RawMessage, keys ...string) error {
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		return addBidderParams(key, value, dataType, params)
	}, keys...)
	if err == jsonparser.KeyPathNotFoundError {
		return nil
	}
	return err
}

func addBidderParams(key []byte, value []byte, dataType jsonparser.ValueType, params map[openrtb_ext.BidderName]json.RawMessage) error {
	bidderName, ok := openrtb_ext.NormalizeBidderName(string(key))
	if !ok {
		return nil
	}
	if dataType != jsonparser.Object {
		return fmt.Errorf("params for %s must be an object", bidderName)
	}
	params[bidderName] = append(json.RawMessage(nil), value...)
	return nil
}

func bidsToMetric(bids []*Bid) metrics.AdapterBid {
	if len(bids) > 0 {
		return metrics.AdapterBidPresent
	}
	return metrics.AdapterBidNone
}

func errorsToMetric(errs []error) map[metrics.AdapterError]struct{} {
	if len(errs) == 0 {
		return nil
	}
	ret := make(map[metrics.AdapterError]struct{}, len(errs))
	var s struct{}
	for _, err := range errs {
		if errortypes.IsWarning(err) {
			continue
		}
		switch errortypes.ReadCode(err) {
		case errortypes.TimeoutErrorCode:
			ret[metrics.AdapterErrorTimeout] = s
		case errortypes.BadInputErrorCode:
			ret[metrics.AdapterErrorBadInput] = s
		case errortypes.BadServerResponseErrorCode:
			ret[metrics.AdapterErrorBadServerResponse] = s
		case errortypes.FailedToRequestBidsErrorCode:
			ret[metrics.AdapterErrorFailedToRequestBids] = s
		case errortypes.GenericErrorCode:
			ret[metrics.AdapterErrorGeneric] = s
		default:
			ret[metrics.AdapterErrorUnknown] = s
		}
	}
	return ret
}
