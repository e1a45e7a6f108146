package privacy

import (
	"math"

	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/gdpr"
	"github.com/prebid/prebid-mediation/util/iputil"
	"github.com/prebid/prebid-mediation/util/ptrutil"
)

const (
	ipv4MaskBits = 24
	ipv6MaskBits = 56
	geoPrecision = 2
)

// Scrubber removes personal data from a bid request according to an enforcement action.
type Scrubber interface {
	// Apply returns the request a bidder may see. The input request is never modified; the result
	// shares every part the action leaves untouched.
	Apply(action gdpr.PrivacyEnforcementAction, request *openrtb2.BidRequest) *openrtb2.BidRequest
}

// NewScrubber returns a Scrubber masking IPv4 addresses to /24 and IPv6 addresses to /56.
func NewScrubber() Scrubber {
	return scrubber{
		ipv4MaskBits: ipv4MaskBits,
		ipv6MaskBits: ipv6MaskBits,
	}
}

type scrubber struct {
	ipv4MaskBits int
	ipv6MaskBits int
}

func (s scrubber) Apply(action gdpr.PrivacyEnforcementAction, request *openrtb2.BidRequest) *openrtb2.BidRequest {
	if request == nil || action.IsPermissive() {
		return request
	}

	scrubbed := *request
	if action.RemoveUserIDs || action.MaskGeo {
		scrubbed.User = ptrutil.Clone(request.User)
	}
	if action.MaskDeviceInfo || action.MaskGeo {
		scrubbed.Device = ptrutil.Clone(request.Device)
	}

	if action.RemoveUserIDs {
		scrubUserIDs(scrubbed.User)
	}
	if action.MaskDeviceInfo {
		scrubDeviceIDs(scrubbed.Device)
	}
	if action.MaskGeo {
		s.scrubGeo(scrubbed.User, scrubbed.Device)
	}
	return &scrubbed
}

func scrubUserIDs(user *openrtb2.User) {
	if user == nil {
		return
	}
	user.ID = ""
	user.BuyerUID = ""
	user.EIDs = nil
	user.Ext = scrubExtIDs(user.Ext)
}

// scrubExtIDs drops "eids" from a user.ext object without touching the caller's bytes.
func scrubExtIDs(ext []byte) []byte {
	if len(ext) == 0 {
		return ext
	}
	if _, _, _, err := jsonparser.Get(ext, "eids"); err != nil {
		return ext
	}
	return jsonparser.Delete(append([]byte(nil), ext...), "eids")
}

func scrubDeviceIDs(device *openrtb2.Device) {
	if device == nil {
		return
	}
	device.IFA = ""
	device.DIDSHA1 = ""
	device.DIDMD5 = ""
	device.DPIDSHA1 = ""
	device.DPIDMD5 = ""
	device.MACSHA1 = ""
	device.MACMD5 = ""
}

func (s scrubber) scrubGeo(user *openrtb2.User, device *openrtb2.Device) {
	if user != nil {
		user.Geo = scrubGeoPrecision(user.Geo)
	}
	if device != nil {
		device.Geo = scrubGeoPrecision(device.Geo)
		device.IP = iputil.MaskIP(device.IP, s.ipv4MaskBits)
		device.IPv6 = iputil.MaskIP(device.IPv6, s.ipv6MaskBits)
	}
}

// scrubGeoPrecision returns a copy of geo with coarse coordinates and no locality fields.
func scrubGeoPrecision(geo *openrtb2.Geo) *openrtb2.Geo {
	if geo == nil {
		return nil
	}

	scrubbed := ptrutil.Clone(geo)
	if geo.Lat != nil {
		scrubbed.Lat = ptrutil.ToPtr(roundCoordinate(*geo.Lat))
	}
	if geo.Lon != nil {
		scrubbed.Lon = ptrutil.ToPtr(roundCoordinate(*geo.Lon))
	}
	scrubbed.Metro = ""
	scrubbed.City = ""
	scrubbed.ZIP = ""
	return scrubbed
}

func roundCoordinate(v float64) float64 {
	scale := math.Pow(10, geoPrecision)
	return math.Round(v*scale) / scale
}
