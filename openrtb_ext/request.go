package openrtb_ext

import (
	"github.com/prebid/openrtb/v20/openrtb2"
)

// ExtRegs defines the contract for bidrequest.regs.ext
type ExtRegs struct {
	// GDPR should be "1" if the caller believes the user is subject to GDPR laws, "0" if not, and undefined
	// if it's unknown.
	GDPR *int8 `json:"gdpr,omitempty"`
}

// ExtUser defines the contract for bidrequest.user.ext
type ExtUser struct {
	// Consent is a GDPR consent string.
	Consent string         `json:"consent,omitempty"`
	Eids    []openrtb2.EID `json:"eids,omitempty"`
}
