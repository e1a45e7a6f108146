package gdpr

import (
	"fmt"

	"github.com/prebid/go-gdpr/consentconstants"
	"github.com/prebid/prebid-mediation/config"
)

// EnforcementType selects how a purpose's legal basis is established.
type EnforcementType string

const (
	// EnforcementFull accepts either consent or legitimate interest.
	EnforcementFull EnforcementType = config.TCF2EnforceAlgoFull
	// EnforcementBasic accepts consent only.
	EnforcementBasic EnforcementType = config.TCF2EnforceAlgoBasic
	// EnforcementNone always allows the purpose.
	EnforcementNone EnforcementType = config.TCF2EnforceAlgoNone
)

// ParseEnforcementType maps a configured algorithm onto an EnforcementType.
func ParseEnforcementType(algo string) (EnforcementType, error) {
	switch EnforcementType(algo) {
	case EnforcementFull, EnforcementBasic, EnforcementNone:
		return EnforcementType(algo), nil
	case "":
		return EnforcementFull, nil
	default:
		return "", fmt.Errorf("unknown TCF2 enforcement algorithm %q", algo)
	}
}

// legalBasis reports whether the vendor may process data for the purpose under this enforcement type.
func (t EnforcementType) legalBasis(view ConsentView, vendorID uint16, purpose consentconstants.Purpose) bool {
	switch t {
	case EnforcementNone:
		return true
	case EnforcementBasic:
		return view.HasConsent(vendorID, purpose)
	default:
		return view.HasConsent(vendorID, purpose) || view.HasLegitimateInterest(vendorID, purpose)
	}
}
