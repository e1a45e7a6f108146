package mobilefuse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"text/template"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/macros"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

type adapter struct {
	endpointTemplate *template.Template
}

// Builder builds a new instance of the MobileFuse adapter for the given bidder with the given config.
func Builder(bidderName openrtb_ext.BidderName, config config.Adapter, server config.Server) (adapters.Bidder, error) {
	template, err := template.New("endpointTemplate").Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("unable to parse endpoint url template: %v", err)
	}

	bidder := &adapter{
		endpointTemplate: template,
	}
	return bidder, nil
}

func (a *adapter) MakeRequests(request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) ([]*adapters.RequestData, []error) {
	adapterRequest, errs := a.makeRequest(request)
	if adapterRequest == nil {
		return nil, errs
	}
	return []*adapters.RequestData{adapterRequest}, errs
}

func (a *adapter) MakeBids(internalRequest *openrtb2.BidRequest, externalRequest *adapters.RequestData, response *adapters.ResponseData) (*adapters.BidderResponse, []error) {
	if adapters.IsResponseStatusCodeNoContent(response) {
		return nil, nil
	}

	if response.StatusCode == http.StatusBadRequest {
		return nil, []error{&errortypes.BadInput{
			Message: "Invalid request.",
		}}
	}

	if response.StatusCode != http.StatusOK {
		return nil, []error{&errortypes.BadServerResponse{
			Message: fmt.Sprintf("Unexpected HTTP status %d.", response.StatusCode),
		}}
	}

	var incomingBidResponse openrtb2.BidResponse
	if err := json.Unmarshal(response.Body, &incomingBidResponse); err != nil {
		return nil, []error{&errortypes.BadServerResponse{
			Message: err.Error(),
		}}
	}

	imps := internalRequest.Imp
	if externalRequest != nil && externalRequest.Payload != nil {
		imps = externalRequest.Payload.Imp
	}

	outgoingBidResponse := adapters.NewBidderResponseWithBidsCapacity(len(imps))
	if incomingBidResponse.Cur != "" {
		outgoingBidResponse.Currency = incomingBidResponse.Cur
	}

	for _, seatbid := range incomingBidResponse.SeatBid {
		for i := range seatbid.Bid {
			outgoingBidResponse.Bids = append(outgoingBidResponse.Bids, &adapters.TypedBid{
				Bid:     &seatbid.Bid[i],
				BidType: adapters.GetMediaTypeForImp(seatbid.Bid[i].ImpID, imps),
			})
		}
	}

	return outgoingBidResponse, nil
}

func (a *adapter) makeRequest(bidRequest *openrtb2.BidRequest) (*adapters.RequestData, []error) {
	mobilefuseExtension, err := getMobilefuseExtension(bidRequest)
	if err != nil {
		return nil, []error{err}
	}

	endpoint, err := a.getEndpoint(mobilefuseExtension)
	if err != nil {
		return nil, []error{err}
	}

	validImps := getValidImps(bidRequest, mobilefuseExtension)
	if len(validImps) == 0 {
		return nil, []error{&errortypes.BadInput{
			Message: "No valid imps",
		}}
	}

	mobilefuseBidRequest := *bidRequest
	mobilefuseBidRequest.Imp = validImps
	body, err := json.Marshal(mobilefuseBidRequest)
	if err != nil {
		return nil, []error{err}
	}

	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")

	impIDs := make([]string, 0, len(validImps))
	for _, imp := range validImps {
		impIDs = append(impIDs, imp.ID)
	}

	return &adapters.RequestData{
		Method:  http.MethodPost,
		Uri:     endpoint,
		Body:    body,
		Headers: headers,
		ImpIDs:  impIDs,
		Payload: &mobilefuseBidRequest,
	}, nil
}

// getMobilefuseExtension returns the params of the first imp whose ext decodes. The whole request
// shares one publisher, so a request with no decodable imp cannot be sent.
func getMobilefuseExtension(request *openrtb2.BidRequest) (*openrtb_ext.ExtImpMobilefuse, error) {
	var lastErr error

	for i := range request.Imp {
		bidderImpExtension, err := adapters.ExtImpBidder(&request.Imp[i])
		if err != nil {
			lastErr = err
			continue
		}

		var mobilefuseImpExtension openrtb_ext.ExtImpMobilefuse
		if err := json.Unmarshal(bidderImpExtension.Bidder, &mobilefuseImpExtension); err != nil {
			lastErr = err
			continue
		}
		if err := adapters.RequireParams(bidderImpExtension.Bidder, "placement_id", "pub_id"); err != nil {
			lastErr = err
			continue
		}

		return &mobilefuseImpExtension, nil
	}

	message := "No imp carries mobilefuse params"
	if lastErr != nil {
		message = fmt.Sprintf("Invalid mobilefuse params: %s", lastErr.Error())
	}
	return nil, &errortypes.BadInput{Message: message}
}

func (a *adapter) getEndpoint(ext *openrtb_ext.ExtImpMobilefuse) (string, error) {
	publisherID := strconv.Itoa(ext.PublisherId)

	url, err := macros.ResolveMacros(a.endpointTemplate, macros.EndpointTemplateParams{PublisherID: publisherID})
	if err != nil {
		return "", err
	}

	if ext.TagidSrc == "ext" {
		url += "&tagid_src=ext"
	}

	return url, nil
}

// getValidImps keeps banner and video imps. MobileFuse takes one format per imp, so video is dropped
// whenever banner is present.
func getValidImps(bidRequest *openrtb2.BidRequest, ext *openrtb_ext.ExtImpMobilefuse) []openrtb2.Imp {
	var validImps []openrtb2.Imp

	for _, imp := range bidRequest.Imp {
		if imp.Banner == nil && imp.Video == nil {
			continue
		}
		if imp.Banner != nil && imp.Video != nil {
			imp.Video = nil
		}

		imp.TagID = strconv.Itoa(ext.PlacementId)
		imp.Ext = nil
		validImps = append(validImps, imp)
	}

	return validImps
}
