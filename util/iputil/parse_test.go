package iputil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIP(t *testing.T) {
	testCases := []struct {
		input       string
		expectedVer IPVersion
		expectedIP  net.IP
	}{
		{"", IPvUnknown, nil},
		{"1.1.1.1", IPv4, net.IPv4(1, 1, 1, 1)},
		{"-1.-1.-1.-1", IPvUnknown, nil},
		{"256.256.256.256", IPvUnknown, nil},
		{"::ffff:1.1.1.1", IPv6, net.IP{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 255, 255, 1, 1, 1, 1}},
		{"0101::", IPv6, net.IP{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"zzzz::", IPvUnknown, nil},
	}

	for _, test := range testCases {
		ip, ver := ParseIP(test.input)
		assert.Equal(t, test.expectedVer, ver, test.input)
		assert.Equal(t, test.expectedIP, ip, test.input)
	}
}

func TestMaskIP(t *testing.T) {
	testCases := []struct {
		ip       string
		ones     int
		expected string
	}{
		{ip: "", ones: 24, expected: ""},
		{ip: "not-an-ip", ones: 24, expected: ""},
		{ip: "192.168.17.42", ones: 24, expected: "192.168.17.0"},
		{ip: "192.168.17.42", ones: 16, expected: "192.168.0.0"},
		{ip: "0:0:0:0:0:0:0:0", ones: 56, expected: "::"},
		{ip: "1111:2222:3333:4444:5555:6666:7777:8888", ones: 56, expected: "1111:2222:3333:4400::"},
		{ip: "1111:0:3333:4444:5555:6666:7777:8888", ones: 56, expected: "1111:0:3333:4400::"},
		{ip: "1111::6666:7777:8888", ones: 56, expected: "1111::"},
		{ip: "2001:1db8:0000:0000:0000:ff00:0042:8329", ones: 96, expected: "2001:1db8::ff00:0:0"},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, MaskIP(test.ip, test.ones), test.ip)
	}
}
