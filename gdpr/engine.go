package gdpr

import (
	"github.com/golang/glog"
	"github.com/prebid/go-gdpr/consentconstants"
	"github.com/prebid/prebid-mediation/config"
)

// PurposeState is the outcome of evaluating one purpose for one vendor.
type PurposeState int

const (
	PurposeNotEvaluated PurposeState = iota
	PurposeAllowed
	PurposeRestricted
)

func (s PurposeState) String() string {
	switch s {
	case PurposeAllowed:
		return "allowed"
	case PurposeRestricted:
		return "restricted"
	default:
		return "not evaluated"
	}
}

// PurposeVerdict records how one purpose was decided and what it contributed.
type PurposeVerdict struct {
	Purpose     consentconstants.Purpose
	Enforcement EnforcementType
	State       PurposeState
	Delta       ActionDelta
}

// Evaluation is the frozen action for one vendor plus the per-purpose verdicts which produced it.
type Evaluation struct {
	VendorID uint16
	Action   PrivacyEnforcementAction
	Verdicts []PurposeVerdict
}

// Engine evaluates the ten TCF2 purposes for a vendor. It holds no per-auction state and is safe
// for concurrent use.
type Engine struct {
	enforcement map[consentconstants.Purpose]EnforcementType
}

// NewEngine builds an Engine from the host's TCF2 purpose configuration. The configuration is
// expected to be validated; unknown algorithms fall back to full enforcement.
func NewEngine(cfg config.TCF2) *Engine {
	enforcement := make(map[consentconstants.Purpose]EnforcementType, len(purposeOrder))
	for _, purpose := range purposeOrder {
		enforcementType, err := ParseEnforcementType(cfg.PurposeEnforceAlgo(int(purpose)))
		if err != nil {
			glog.Warningf("purpose %d: %v. Using full enforcement.", purpose, err)
			enforcementType = EnforcementFull
		}
		enforcement[purpose] = enforcementType
	}
	return &Engine{enforcement: enforcement}
}

// Enforcement returns the enforcement type configured for purpose.
func (e *Engine) Enforcement(purpose consentconstants.Purpose) EnforcementType {
	if enforcementType, ok := e.enforcement[purpose]; ok {
		return enforcementType
	}
	return EnforcementFull
}

// Evaluate runs every purpose, in ascending id order, for vendorID against view.
func (e *Engine) Evaluate(view ConsentView, vendorID uint16) Evaluation {
	return e.evaluate(view, vendorID, purposeOrder)
}

func (e *Engine) evaluate(view ConsentView, vendorID uint16, order []consentconstants.Purpose) Evaluation {
	verdicts := make([]PurposeVerdict, 0, len(order))
	deltas := make([]ActionDelta, 0, len(order))

	for _, purpose := range order {
		verdict := e.evaluatePurpose(view, vendorID, purpose)
		verdicts = append(verdicts, verdict)
		deltas = append(deltas, verdict.Delta)

		if glog.V(3) {
			glog.Infof("vendor %d purpose %d (%s, %s): %s", vendorID, purpose, purposeRules[purpose].name, verdict.Enforcement, verdict.State)
		}
	}

	return Evaluation{
		VendorID: vendorID,
		Action:   foldDeltas(deltas),
		Verdicts: verdicts,
	}
}

func (e *Engine) evaluatePurpose(view ConsentView, vendorID uint16, purpose consentconstants.Purpose) PurposeVerdict {
	rule := purposeRules[purpose]
	enforcementType := e.Enforcement(purpose)

	verdict := PurposeVerdict{
		Purpose:     purpose,
		Enforcement: enforcementType,
	}
	if enforcementType.legalBasis(view, vendorID, purpose) {
		verdict.State = PurposeAllowed
		verdict.Delta = rule.allowNaturally
	} else {
		verdict.State = PurposeRestricted
		verdict.Delta = rule.restrict
	}
	return verdict
}
