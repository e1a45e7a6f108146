package info

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// NewBiddersEndpoint implements /info/bidders
func NewBiddersEndpoint(bidders []openrtb_ext.BidderName) (httprouter.Handle, error) {
	bidderNames := make([]string, 0, len(bidders))
	for _, bidderName := range bidders {
		bidderNames = append(bidderNames, string(bidderName))
	}

	biddersJson, err := json.Marshal(bidderNames)
	if err != nil {
		return nil, fmt.Errorf("error creating /info/bidders endpoint response: %v", err)
	}

	return httprouter.Handle(func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(biddersJson); err != nil {
			glog.Errorf("error writing response to /info/bidders: %v", err)
		}
	}), nil
}

// NewBidderDetailsEndpoint implements /info/bidders/:bidderName
func NewBidderDetailsEndpoint(infos config.BidderInfos, bidders []openrtb_ext.BidderName) (httprouter.Handle, error) {
	// Build all the responses up front, since there are a finite number and it won't use much memory.
	responses := make(map[string]json.RawMessage, len(bidders))
	for _, bidderName := range bidders {
		bidderString := string(bidderName)
		jsonBytes, err := json.Marshal(newInfoFile(infos[bidderString]))
		if err != nil {
			return nil, fmt.Errorf("error writing JSON of bidder info %s: %v", bidderString, err)
		}
		responses[bidderString] = json.RawMessage(jsonBytes)
	}

	return httprouter.Handle(func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		forBidder := ps.ByName("bidderName")
		response, ok := responses[forBidder]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(response); err != nil {
			glog.Errorf("error writing response to /info/bidders/%s: %v", forBidder, err)
		}
	}), nil
}

type infoFile struct {
	Maintainer   *maintainerInfo   `json:"maintainer,omitempty"`
	Capabilities *capabilitiesInfo `json:"capabilities,omitempty"`
	GVLVendorID  uint16            `json:"gvlVendorID,omitempty"`
}

type maintainerInfo struct {
	Email string `json:"email"`
}

type capabilitiesInfo struct {
	App  *platformInfo `json:"app,omitempty"`
	Site *platformInfo `json:"site,omitempty"`
}

type platformInfo struct {
	MediaTypes []openrtb_ext.BidType `json:"mediaTypes"`
}

func newInfoFile(info config.BidderInfo) infoFile {
	out := infoFile{GVLVendorID: info.GVLVendorID}
	if info.Maintainer != nil {
		out.Maintainer = &maintainerInfo{Email: info.Maintainer.Email}
	}
	if info.Capabilities != nil {
		out.Capabilities = &capabilitiesInfo{
			App:  newPlatformInfo(info.Capabilities.App),
			Site: newPlatformInfo(info.Capabilities.Site),
		}
	}
	return out
}

func newPlatformInfo(platform *config.PlatformInfo) *platformInfo {
	if platform == nil {
		return nil
	}
	return &platformInfo{MediaTypes: platform.MediaTypes}
}
