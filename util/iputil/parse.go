package iputil

import (
	"net"
	"strings"
)

// IPVersion is the numerical version of an IP address.
type IPVersion int

const (
	IPvUnknown IPVersion = 0
	IPv4       IPVersion = 4
	IPv6       IPVersion = 6
)

const (
	IPv4BitSize = 32
	IPv6BitSize = 128
)

// ParseIP parses v as an ip address returning the result and version, or nil and unknown if invalid.
func ParseIP(v string) (net.IP, IPVersion) {
	if ip := net.ParseIP(v); ip != nil {
		if strings.Contains(v, ":") {
			return ip, IPv6
		}
		return ip, IPv4
	}
	return nil, IPvUnknown
}

// MaskIP keeps the first ones bits of v and zeroes the rest. An invalid address masks to "".
func MaskIP(v string, ones int) string {
	ip, ver := ParseIP(v)
	switch ver {
	case IPv4:
		return ip.Mask(net.CIDRMask(ones, IPv4BitSize)).String()
	case IPv6:
		return ip.Mask(net.CIDRMask(ones, IPv6BitSize)).String()
	default:
		return ""
	}
}
