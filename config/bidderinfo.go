package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prebid/prebid-mediation/openrtb_ext"
	"gopkg.in/yaml.v2"
)

// BidderInfos contains a mapping of bidder name to bidder info.
type BidderInfos map[string]BidderInfo

// BidderInfo specifies the static, per-bidder facts shipped with the server.
type BidderInfo struct {
	Disabled     bool              `yaml:"disabled"`
	Endpoint     string            `yaml:"endpoint"`
	Maintainer   *MaintainerInfo   `yaml:"maintainer"`
	Capabilities *CapabilitiesInfo `yaml:"capabilities"`
	// GVLVendorID is the bidder's id on the IAB global vendor list; consent is evaluated against it.
	GVLVendorID uint16 `yaml:"gvlVendorID"`
}

// MaintainerInfo specifies the support email address for a bidder.
type MaintainerInfo struct {
	Email string `yaml:"email"`
}

// CapabilitiesInfo specifies the supported platforms for a bidder.
type CapabilitiesInfo struct {
	App  *PlatformInfo `yaml:"app"`
	Site *PlatformInfo `yaml:"site"`
}

// PlatformInfo specifies the supported media types for a bidder.
type PlatformInfo struct {
	MediaTypes []openrtb_ext.BidType `yaml:"mediaTypes"`
}

type infoReader interface {
	Read(bidder string) ([]byte, error)
}

type infoReaderFromDisk struct {
	path string
}

func (r infoReaderFromDisk) Read(bidder string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.path, bidder+".yaml"))
}

// LoadBidderInfoFromDisk parses all static/bidder-info/{bidder}.yaml files from the file system.
func LoadBidderInfoFromDisk(path string, bidders []string) (BidderInfos, error) {
	return loadBidderInfo(infoReaderFromDisk{path}, bidders)
}

func loadBidderInfo(r infoReader, bidders []string) (BidderInfos, error) {
	infos := BidderInfos{}

	for _, bidder := range bidders {
		data, err := r.Read(bidder)
		if err != nil {
			return nil, fmt.Errorf("error loading bidder info for %s: %v", bidder, err)
		}

		info := BidderInfo{}
		if err := yaml.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("error parsing bidder info for %s: %v", bidder, err)
		}

		infos[bidder] = info
	}

	return infos, nil
}

// ToGVLVendorIDMap transforms a BidderInfos object to a map of bidder names to GVL id. Disabled
// bidders and bidders without a vendor id are omitted.
func (infos BidderInfos) ToGVLVendorIDMap() map[openrtb_ext.BidderName]uint16 {
	gvlVendorIds := make(map[openrtb_ext.BidderName]uint16, len(infos))
	for name, info := range infos {
		if !info.Disabled && info.GVLVendorID != 0 {
			gvlVendorIds[openrtb_ext.BidderName(name)] = info.GVLVendorID
		}
	}
	return gvlVendorIds
}

// SupportsPlatform reports whether the bidder declares any media types for app or site traffic.
func (info BidderInfo) SupportsPlatform(app bool) bool {
	if info.Capabilities == nil {
		return true
	}
	if app {
		return info.Capabilities.App != nil
	}
	return info.Capabilities.Site != nil
}

// SupportsMediaType reports whether the bidder accepts mediaType on the given platform. A bidder
// without declared capabilities is assumed to accept everything.
func (info BidderInfo) SupportsMediaType(app bool, mediaType openrtb_ext.BidType) bool {
	if info.Capabilities == nil {
		return true
	}
	platform := info.Capabilities.Site
	if app {
		platform = info.Capabilities.App
	}
	if platform == nil {
		return false
	}
	for _, supported := range platform.MediaTypes {
		if supported == mediaType {
			return true
		}
	}
	return false
}
