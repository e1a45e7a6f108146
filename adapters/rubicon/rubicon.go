package rubicon

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

const userAgent = "prebid-server/1.0"

type RubiconAdapter struct {
	URI          string
	XAPIUsername string
	XAPIPassword string
}

type rubiconImpExtRPTrack struct {
	Mint        string `json:"mint"`
	MintVersion string `json:"mint_version"`
}

type rubiconImpExtRP struct {
	ZoneID int                  `json:"zone_id"`
	Target json.RawMessage      `json:"target,omitempty"`
	Track  rubiconImpExtRPTrack `json:"track"`
}

type rubiconImpExt struct {
	RP rubiconImpExtRP `json:"rp"`
}

type rubiconUserExtRP struct {
	Target json.RawMessage `json:"target,omitempty"`
}

type rubiconUserExt struct {
	RP rubiconUserExtRP `json:"rp"`
}

type rubiconSiteExtRP struct {
	SiteID int `json:"site_id"`
}

type rubiconSiteExt struct {
	RP rubiconSiteExtRP `json:"rp"`
}

type rubiconPubExtRP struct {
	AccountID int `json:"account_id"`
}

type rubiconPubExt struct {
	RP rubiconPubExtRP `json:"rp"`
}

type rubiconBannerExtRP struct {
	SizeID     int    `json:"size_id,omitempty"`
	AltSizeIDs []int  `json:"alt_size_ids,omitempty"`
	MIME       string `json:"mime"`
}

type rubiconBannerExt struct {
	RP rubiconBannerExtRP `json:"rp"`
}

type rubiconVideoExt struct {
	Skip      int               `json:"skip,omitempty"`
	SkipDelay int               `json:"skipdelay,omitempty"`
	RP        rubiconVideoExtRP `json:"rp"`
}

type rubiconVideoExtRP struct {
	SizeID int `json:"size_id,omitempty"`
}

type rubiconDeviceExtRP struct {
	PixelRatio float64 `json:"pixelratio"`
}

type rubiconDeviceExt struct {
	RP rubiconDeviceExtRP `json:"rp"`
}

type rubiSize struct {
	w int64
	h int64
}

var rubiSizeMap = map[rubiSize]int{
	{w: 468, h: 60}:    1,
	{w: 728, h: 90}:    2,
	{w: 728, h: 91}:    2,
	{w: 120, h: 600}:   8,
	{w: 160, h: 600}:   9,
	{w: 300, h: 600}:   10,
	{w: 300, h: 250}:   15,
	{w: 300, h: 251}:   15,
	{w: 336, h: 280}:   16,
	{w: 300, h: 100}:   19,
	{w: 980, h: 120}:   31,
	{w: 250, h: 360}:   32,
	{w: 180, h: 500}:   33,
	{w: 980, h: 150}:   35,
	{w: 468, h: 400}:   37,
	{w: 930, h: 180}:   38,
	{w: 320, h: 50}:    43,
	{w: 300, h: 50}:    44,
	{w: 300, h: 300}:   48,
	{w: 300, h: 1050}:  54,
	{w: 970, h: 90}:    55,
	{w: 970, h: 250}:   57,
	{w: 1000, h: 90}:   58,
	{w: 320, h: 80}:    59,
	{w: 1000, h: 1000}: 61,
	{w: 640, h: 480}:   65,
	{w: 320, h: 480}:   67,
	{w: 1800, h: 1000}: 68,
	{w: 320, h: 320}:   72,
	{w: 320, h: 160}:   73,
	{w: 980, h: 240}:   78,
	{w: 980, h: 300}:   79,
	{w: 980, h: 400}:   80,
	{w: 480, h: 300}:   83,
	{w: 970, h: 310}:   94,
	{w: 970, h: 210}:   96,
	{w: 480, h: 320}:   101,
	{w: 768, h: 1024}:  102,
	{w: 480, h: 280}:   103,
	{w: 1000, h: 300}:  113,
	{w: 320, h: 100}:   117,
	{w: 800, h: 250}:   125,
	{w: 200, h: 600}:   126,
}

func lookupSize(s openrtb2.Format) (int, error) {
	if sz, ok := rubiSizeMap[rubiSize{w: s.W, h: s.H}]; ok {
		return sz, nil
	}
	return 0, fmt.Errorf("Size %dx%d not found", s.W, s.H)
}

func parseRubiconSizes(sizes []openrtb2.Format) (primary int, alt []int, err error) {
	for _, size := range sizes {
		rs, lerr := lookupSize(size)
		if lerr != nil {
			continue
		}
		if primary == 0 {
			primary = rs
		} else {
			alt = append(alt, rs)
		}
	}
	if primary == 0 {
		err = &errortypes.BadInput{Message: "No valid sizes"}
	}
	return
}

func appendTrackerToUrl(uri string, tracker string) (res string) {
	// Append integration method. Adapter init happens once
	urlObject, err := url.Parse(uri)
	if err != nil || tracker == "" {
		return uri
	}
	values := urlObject.Query()
	values.Add("tk_xint", tracker)
	urlObject.RawQuery = values.Encode()
	return urlObject.String()
}

// Builder builds a new instance of the Rubicon adapter for the given bidder with the given config.
func Builder(bidderName openrtb_ext.BidderName, config config.Adapter, server config.Server) (adapters.Bidder, error) {
	uri := appendTrackerToUrl(config.Endpoint, config.XAPI.Tracker)

	bidder := &RubiconAdapter{
		URI:          uri,
		XAPIUsername: config.XAPI.Username,
		XAPIPassword: config.XAPI.Password,
	}
	return bidder, nil
}

func (a *RubiconAdapter) headers() http.Header {
	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")
	headers.Add("User-Agent", userAgent)
	credentials := base64.StdEncoding.EncodeToString([]byte(a.XAPIUsername + ":" + a.XAPIPassword))
	headers.Add("Authorization", "Basic "+credentials)
	return headers
}

// MakeRequests sends one call per imp. An imp with bad params is reported and skipped.
func (a *RubiconAdapter) MakeRequests(request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) ([]*adapters.RequestData, []error) {
	errs := make([]error, 0, len(request.Imp))
	requestData := make([]*adapters.RequestData, 0, len(request.Imp))

	for _, imp := range request.Imp {
		rubiconRequest, err := a.makeImpRequest(request, imp)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		reqJSON, err := json.Marshal(rubiconRequest)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		requestData = append(requestData, &adapters.RequestData{
			Method:  http.MethodPost,
			Uri:     a.URI,
			Body:    reqJSON,
			Headers: a.headers(),
			ImpIDs:  []string{imp.ID},
			Payload: rubiconRequest,
		})
	}

	return requestData, errs
}

// makeImpRequest builds the single-imp request for thisImp. It copies every object it amends.
func (a *RubiconAdapter) makeImpRequest(request *openrtb2.BidRequest, thisImp openrtb2.Imp) (*openrtb2.BidRequest, error) {
	bidderExt, err := adapters.ExtImpBidder(&thisImp)
	if err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: %s", thisImp.ID, err.Error())}
	}

	var rubiconExt openrtb_ext.ExtImpRubicon
	if err := json.Unmarshal(bidderExt.Bidder, &rubiconExt); err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: %s", thisImp.ID, err.Error())}
	}
	if err := adapters.RequireParams(bidderExt.Bidder, "accountId", "siteId", "zoneId"); err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: %s", thisImp.ID, err.Error())}
	}

	if thisImp.Banner == nil && thisImp.Video == nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: rubicon requires banner or video", thisImp.ID)}
	}

	impExt := rubiconImpExt{
		RP: rubiconImpExtRP{
			ZoneID: rubiconExt.ZoneId,
			Target: rubiconExt.Inventory,
			Track:  rubiconImpExtRPTrack{Mint: "", MintVersion: ""},
		},
	}
	if thisImp.Ext, err = json.Marshal(&impExt); err != nil {
		return nil, err
	}

	if thisImp.Video != nil {
		videoCopy := *thisImp.Video
		videoExt := rubiconVideoExt{
			Skip:      rubiconExt.Video.Skip,
			SkipDelay: rubiconExt.Video.SkipDelay,
			RP:        rubiconVideoExtRP{SizeID: rubiconExt.Video.VideoSizeID},
		}
		if videoCopy.Ext, err = json.Marshal(&videoExt); err != nil {
			return nil, err
		}
		thisImp.Video = &videoCopy
	} else {
		primarySizeID, altSizeIDs, err := bannerSizes(thisImp.Banner, rubiconExt.Sizes)
		if err != nil {
			return nil, err
		}
		bannerCopy := *thisImp.Banner
		bannerExt := rubiconBannerExt{RP: rubiconBannerExtRP{SizeID: primarySizeID, AltSizeIDs: altSizeIDs, MIME: "text/html"}}
		if bannerCopy.Ext, err = json.Marshal(&bannerExt); err != nil {
			return nil, err
		}
		thisImp.Banner = &bannerCopy
	}

	rubiconRequest := *request
	rubiconRequest.Imp = []openrtb2.Imp{thisImp}

	if request.User != nil && len(rubiconExt.Visitor) > 0 {
		userCopy := *request.User
		userExt, err := json.Marshal(rubiconUserExt{RP: rubiconUserExtRP{Target: rubiconExt.Visitor}})
		if err != nil {
			return nil, err
		}
		if userCopy.Ext, err = mergeExt(userCopy.Ext, userExt); err != nil {
			return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: invalid user.ext: %s", thisImp.ID, err.Error())}
		}
		rubiconRequest.User = &userCopy
	}

	if request.Device != nil {
		deviceCopy := *request.Device
		deviceExt, err := json.Marshal(rubiconDeviceExt{RP: rubiconDeviceExtRP{PixelRatio: request.Device.PxRatio}})
		if err != nil {
			return nil, err
		}
		if deviceCopy.Ext, err = mergeExt(deviceCopy.Ext, deviceExt); err != nil {
			return nil, &errortypes.BadInput{Message: fmt.Sprintf("Imp %s: invalid device.ext: %s", thisImp.ID, err.Error())}
		}
		rubiconRequest.Device = &deviceCopy
	}

	siteExt, err := json.Marshal(rubiconSiteExt{RP: rubiconSiteExtRP{SiteID: rubiconExt.SiteId}})
	if err != nil {
		return nil, err
	}
	pubExt, err := json.Marshal(rubiconPubExt{RP: rubiconPubExtRP{AccountID: rubiconExt.AccountId}})
	if err != nil {
		return nil, err
	}

	if request.Site != nil {
		siteCopy := *request.Site
		siteCopy.Ext = siteExt
		siteCopy.Publisher = publisherWithExt(request.Site.Publisher, pubExt)
		rubiconRequest.Site = &siteCopy
	}

	if request.App != nil {
		appCopy := *request.App
		appCopy.Ext = siteExt
		appCopy.Publisher = publisherWithExt(request.App.Publisher, pubExt)
		rubiconRequest.App = &appCopy
	}

	return &rubiconRequest, nil
}

// bannerSizes prefers the explicit size ids from the params over the banner formats.
func bannerSizes(banner *openrtb2.Banner, sizes []int) (int, []int, error) {
	if len(sizes) > 0 {
		return sizes[0], sizes[1:], nil
	}
	return parseRubiconSizes(banner.Format)
}

// mergeExt applies patch to ext as an RFC 7386 merge patch, keeping every field patch does not name.
func mergeExt(ext json.RawMessage, patch []byte) (json.RawMessage, error) {
	if len(ext) == 0 {
		return patch, nil
	}
	return jsonpatch.MergePatch(ext, patch)
}

func publisherWithExt(publisher *openrtb2.Publisher, ext json.RawMessage) *openrtb2.Publisher {
	publisherCopy := openrtb2.Publisher{}
	if publisher != nil {
		publisherCopy = *publisher
	}
	publisherCopy.Ext = ext
	return &publisherCopy
}

func (a *RubiconAdapter) MakeBids(internalRequest *openrtb2.BidRequest, externalRequest *adapters.RequestData, response *adapters.ResponseData) (*adapters.BidderResponse, []error) {
	if adapters.IsResponseStatusCodeNoContent(response) {
		return nil, nil
	}

	if err := adapters.CheckResponseStatusCodeForErrors(response); err != nil {
		return nil, []error{err}
	}

	var bidResp openrtb2.BidResponse
	if err := json.Unmarshal(response.Body, &bidResp); err != nil {
		return nil, []error{&errortypes.BadServerResponse{
			Message: err.Error(),
		}}
	}

	imps := internalRequest.Imp
	if externalRequest != nil && externalRequest.Payload != nil {
		imps = externalRequest.Payload.Imp
	}

	bidResponse := adapters.NewBidderResponseWithBidsCapacity(5)
	if bidResp.Cur != "" {
		bidResponse.Currency = bidResp.Cur
	}

	for _, sb := range bidResp.SeatBid {
		for i := range sb.Bid {
			if sb.Bid[i].Price == 0 {
				continue
			}
			bidResponse.Bids = append(bidResponse.Bids, &adapters.TypedBid{
				Bid:     &sb.Bid[i],
				BidType: adapters.GetMediaTypeForImp(sb.Bid[i].ImpID, imps),
			})
		}
	}

	return bidResponse, nil
}
