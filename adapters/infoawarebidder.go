package adapters

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// InfoAwareBidder wraps a Bidder to ensure all requests abide by the capabilities and
// media types defined in the static/bidder-info/{bidder}.yaml file.
//
// It adjusts incoming requests in the following ways:
//  1. If App or Site traffic is not supported by the info file, then requests from
//     those sources will be rejected before the delegate is called.
//  2. If a given MediaType is not supported for the platform, then it will be set
//     to nil before the request is forwarded to the delegate.
//  3. Any Imps which have no MediaTypes left will be removed.
//  4. If there are no valid Imps left, the delegate won't be called at all.
//
// The caller's request is never modified.
type InfoAwareBidder struct {
	Bidder
	info config.BidderInfo
}

// BuildInfoAwareBidder wraps a bidder to enforce inventory {site, app} and media type support.
func BuildInfoAwareBidder(bidder Bidder, info config.BidderInfo) Bidder {
	return &InfoAwareBidder{
		Bidder: bidder,
		info:   info,
	}
}

func (i *InfoAwareBidder) MakeRequests(request *openrtb2.BidRequest, reqInfo *ExtraRequestInfo) ([]*RequestData, []error) {
	app := request.App != nil
	if !i.info.SupportsPlatform(app) {
		if app {
			return nil, []error{&errortypes.Warning{Message: "this bidder does not support app requests"}}
		}
		return nil, []error{&errortypes.Warning{Message: "this bidder does not support site requests"}}
	}

	imps, errs := i.pruneImps(request.Imp, app)
	if len(imps) == 0 {
		return nil, append(errs, &errortypes.Warning{Message: "Bid request didn't contain media types supported by the bidder"})
	}

	if len(errs) > 0 {
		pruned := *request
		pruned.Imp = imps
		request = &pruned
	}

	reqs, delegateErrs := i.Bidder.MakeRequests(request, reqInfo)
	return reqs, append(errs, delegateErrs...)
}

// pruneImps returns imps with unsupported media types removed. The input slice is left untouched.
func (i *InfoAwareBidder) pruneImps(imps []openrtb2.Imp, app bool) ([]openrtb2.Imp, []error) {
	var errs []error
	pruned := make([]openrtb2.Imp, 0, len(imps))

	for index, imp := range imps {
		if imp.Banner != nil && !i.info.SupportsMediaType(app, openrtb_ext.BidTypeBanner) {
			imp.Banner = nil
			errs = append(errs, &errortypes.Warning{Message: fmt.Sprintf("request.imp[%d] uses banner, but this bidder doesn't support it", index)})
		}
		if imp.Video != nil && !i.info.SupportsMediaType(app, openrtb_ext.BidTypeVideo) {
			imp.Video = nil
			errs = append(errs, &errortypes.Warning{Message: fmt.Sprintf("request.imp[%d] uses video, but this bidder doesn't support it", index)})
		}
		if imp.Audio != nil && !i.info.SupportsMediaType(app, openrtb_ext.BidTypeAudio) {
			imp.Audio = nil
			errs = append(errs, &errortypes.Warning{Message: fmt.Sprintf("request.imp[%d] uses audio, but this bidder doesn't support it", index)})
		}
		if imp.Native != nil && !i.info.SupportsMediaType(app, openrtb_ext.BidTypeNative) {
			imp.Native = nil
			errs = append(errs, &errortypes.Warning{Message: fmt.Sprintf("request.imp[%d] uses native, but this bidder doesn't support it", index)})
		}

		if imp.Banner == nil && imp.Video == nil && imp.Audio == nil && imp.Native == nil {
			errs = append(errs, &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] has no supported MediaTypes. It will be ignored", index)})
			continue
		}
		pruned = append(pruned, imp)
	}
	return pruned, errs
}
