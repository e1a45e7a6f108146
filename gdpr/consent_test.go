package gdpr

import (
	"testing"

	"github.com/prebid/go-gdpr/consentconstants"
	"github.com/stretchr/testify/assert"
)

type fakeRestriction struct {
	purpose      uint8
	restrictType uint8
	vendor       uint16
}

// fakeConsentMetadata answers from explicit allow lists.
type fakeConsentMetadata struct {
	purposeConsent map[consentconstants.Purpose]bool
	purposeLI      map[consentconstants.Purpose]bool
	vendorConsent  map[uint16]bool
	vendorLI       map[uint16]bool
	restrictions   map[fakeRestriction]bool
}

func (f fakeConsentMetadata) PurposeAllowed(id consentconstants.Purpose) bool {
	return f.purposeConsent[id]
}

func (f fakeConsentMetadata) PurposeLITransparency(id consentconstants.Purpose) bool {
	return f.purposeLI[id]
}

func (f fakeConsentMetadata) VendorConsent(id uint16) bool {
	return f.vendorConsent[id]
}

func (f fakeConsentMetadata) VendorLegitInterest(id uint16) bool {
	return f.vendorLI[id]
}

func (f fakeConsentMetadata) CheckPubRestriction(purposeID uint8, restrictType uint8, vendor uint16) bool {
	return f.restrictions[fakeRestriction{purpose: purposeID, restrictType: restrictType, vendor: vendor}]
}

func TestParseConsent(t *testing.T) {
	validTCF1Consent := "BONV8oqONXwgmADACHENAO7pqzAAppY"
	validTCF2Consent := "CPuKGCPPuKGCPNEAAAENCZCAAAAAAAAAAAAAAAAAAAAA"

	testCases := []struct {
		description   string
		consent       string
		expectedView  interface{}
		expectedError string
	}{
		{
			description:  "empty",
			consent:      "",
			expectedView: NoConsent{},
		},
		{
			description:  "tcf2",
			consent:      validTCF2Consent,
			expectedView: tcf2View{},
		},
		{
			description:   "tcf1-rejected",
			consent:       validTCF1Consent,
			expectedView:  NoConsent{},
			expectedError: "malformed consent string " + validTCF1Consent,
		},
		{
			description:   "garbage",
			consent:       "#$%^",
			expectedView:  NoConsent{},
			expectedError: "malformed consent string #$%^",
		},
	}

	for _, test := range testCases {
		view, err := ParseConsent(test.consent)
		assert.IsType(t, test.expectedView, view, test.description)
		if test.expectedError == "" {
			assert.NoError(t, err, test.description)
		} else {
			assert.IsType(t, &ErrorMalformedConsent{}, err, test.description)
			assert.Contains(t, err.Error(), test.expectedError, test.description)
		}
	}
}

func TestParsedConsentWithoutVendorsDeniesEverything(t *testing.T) {
	view, err := ParseConsent("CPuKGCPPuKGCPNEAAAENCZCAAAAAAAAAAAAAAAAAAAAA")
	assert.NoError(t, err)

	for purpose := consentconstants.Purpose(1); purpose <= 10; purpose++ {
		assert.False(t, view.HasConsent(52, purpose))
		assert.False(t, view.HasLegitimateInterest(52, purpose))
	}
}

func TestTCF2View(t *testing.T) {
	const vendor uint16 = 32

	metadata := fakeConsentMetadata{
		purposeConsent: map[consentconstants.Purpose]bool{1: true, 2: true, 3: true},
		purposeLI:      map[consentconstants.Purpose]bool{2: true, 3: true, 7: true},
		vendorConsent:  map[uint16]bool{vendor: true},
		vendorLI:       map[uint16]bool{vendor: true},
		restrictions: map[fakeRestriction]bool{
			{purpose: 2, restrictType: pubRestrictRequireConsent, vendor: vendor}:       true,
			{purpose: 3, restrictType: pubRestrictNotAllowed, vendor: vendor}:           true,
			{purpose: 1, restrictType: pubRestrictRequireLegitInterest, vendor: vendor}: true,
		},
	}
	view := tcf2View{metadata: metadata}

	testCases := []struct {
		description        string
		vendor             uint16
		purpose            consentconstants.Purpose
		expectedConsent    bool
		expectedLegitimate bool
	}{
		{description: "require-li-blocks-consent", vendor: vendor, purpose: 1, expectedConsent: false, expectedLegitimate: false},
		{description: "require-consent-blocks-li", vendor: vendor, purpose: 2, expectedConsent: true, expectedLegitimate: false},
		{description: "not-allowed-blocks-both", vendor: vendor, purpose: 3, expectedConsent: false, expectedLegitimate: false},
		{description: "li-only", vendor: vendor, purpose: 7, expectedConsent: false, expectedLegitimate: true},
		{description: "nothing", vendor: vendor, purpose: 4, expectedConsent: false, expectedLegitimate: false},
		{description: "unknown-vendor", vendor: 99, purpose: 2, expectedConsent: false, expectedLegitimate: false},
		{description: "vendor-zero", vendor: 0, purpose: 2, expectedConsent: false, expectedLegitimate: false},
		{description: "purpose-out-of-range", vendor: vendor, purpose: 11, expectedConsent: false, expectedLegitimate: false},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expectedConsent, view.HasConsent(test.vendor, test.purpose), test.description)
		assert.Equal(t, test.expectedLegitimate, view.HasLegitimateInterest(test.vendor, test.purpose), test.description)
	}
}
