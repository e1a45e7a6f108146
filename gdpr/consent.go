package gdpr

import (
	"fmt"

	"github.com/prebid/go-gdpr/consentconstants"
	"github.com/prebid/go-gdpr/vendorconsent"
	tcf2 "github.com/prebid/go-gdpr/vendorconsent/tcf2"
)

const (
	pubRestrictNotAllowed           = 0
	pubRestrictRequireConsent       = 1
	pubRestrictRequireLegitInterest = 2
)

const (
	minPurpose consentconstants.Purpose = 1
	maxPurpose consentconstants.Purpose = 10
)

// ConsentView is a read-only accessor over a decoded consent string. Both methods answer false for
// any vendor or purpose the consent string says nothing about.
type ConsentView interface {
	HasConsent(vendorID uint16, purpose consentconstants.Purpose) bool
	HasLegitimateInterest(vendorID uint16, purpose consentconstants.Purpose) bool
}

// An ErrorMalformedConsent is returned by ParseConsent if the consent string could not be decoded
// as a TCF2 string.
type ErrorMalformedConsent struct {
	Consent string
	Cause   error
}

func (e *ErrorMalformedConsent) Error() string {
	return "malformed consent string " + e.Consent + ": " + e.Cause.Error()
}

// consentMetadata is the subset of tcf2.ConsentMetadata the view reads.
type consentMetadata interface {
	PurposeAllowed(id consentconstants.Purpose) bool
	PurposeLITransparency(id consentconstants.Purpose) bool
	VendorConsent(id uint16) bool
	VendorLegitInterest(id uint16) bool
	CheckPubRestriction(purposeID uint8, restrictType uint8, vendor uint16) bool
}

// ParseConsent decodes a TCF2 consent string. It never returns a nil view: when the string is empty
// or malformed the view denies everything, and the error explains why.
func ParseConsent(consent string) (ConsentView, error) {
	if consent == "" {
		return NoConsent{}, nil
	}

	parsed, err := vendorconsent.ParseString(consent)
	if err != nil {
		return NoConsent{}, &ErrorMalformedConsent{Consent: consent, Cause: err}
	}

	if version := parsed.Version(); version != 2 {
		return NoConsent{}, &ErrorMalformedConsent{
			Consent: consent,
			Cause:   fmt.Errorf("invalid encoding format version: %d", version),
		}
	}

	metadata, ok := parsed.(tcf2.ConsentMetadata)
	if !ok {
		return NoConsent{}, &ErrorMalformedConsent{
			Consent: consent,
			Cause:   fmt.Errorf("unable to access TCF2 parsed consent"),
		}
	}

	return tcf2View{metadata: metadata}, nil
}

type tcf2View struct {
	metadata consentMetadata
}

func (v tcf2View) HasConsent(vendorID uint16, purpose consentconstants.Purpose) bool {
	if !v.applies(vendorID, purpose) || v.restricted(vendorID, purpose, pubRestrictRequireLegitInterest) {
		return false
	}
	return v.metadata.PurposeAllowed(purpose) && v.metadata.VendorConsent(vendorID)
}

func (v tcf2View) HasLegitimateInterest(vendorID uint16, purpose consentconstants.Purpose) bool {
	if !v.applies(vendorID, purpose) || v.restricted(vendorID, purpose, pubRestrictRequireConsent) {
		return false
	}
	return v.metadata.PurposeLITransparency(purpose) && v.metadata.VendorLegitInterest(vendorID)
}

func (v tcf2View) applies(vendorID uint16, purpose consentconstants.Purpose) bool {
	if vendorID == 0 || purpose < minPurpose || purpose > maxPurpose {
		return false
	}
	return !v.metadata.CheckPubRestriction(uint8(purpose), pubRestrictNotAllowed, vendorID)
}

// restricted reports whether a publisher restriction of restrictType rules out the other legal basis.
func (v tcf2View) restricted(vendorID uint16, purpose consentconstants.Purpose, restrictType uint8) bool {
	return v.metadata.CheckPubRestriction(uint8(purpose), restrictType, vendorID)
}

// NoConsent is the fail-safe view used when consent is absent or unreadable.
type NoConsent struct{}

func (NoConsent) HasConsent(uint16, consentconstants.Purpose) bool {
	return false
}

func (NoConsent) HasLegitimateInterest(uint16, consentconstants.Purpose) bool {
	return false
}
