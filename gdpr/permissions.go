package gdpr

import (
	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// Permissions answers, for one auction, which enforcement action applies to each bidder.
type Permissions interface {
	EnforcementAction(bidder openrtb_ext.BidderName) PrivacyEnforcementAction
}

// PermissionsBuilder creates the Permissions for one auction from its gdpr signal and consent string.
// The returned errors are warnings: a malformed consent string still yields fail-safe Permissions.
type PermissionsBuilder func(signal Signal, consent string) (Permissions, []error)

// NewPermissionsBuilder captures the host configuration shared by every auction.
func NewPermissionsBuilder(cfg config.GDPR, vendorIDs map[openrtb_ext.BidderName]uint16, cache ActionCache, me metrics.MetricsEngine) PermissionsBuilder {
	engine := NewEngine(cfg.TCF2)
	if cache == nil {
		cache = nilActionCache{}
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}

	return func(signal Signal, consent string) (Permissions, []error) {
		if !cfg.Enabled || SignalNormalize(signal, cfg.DefaultValue) == SignalNo {
			return AlwaysAllow{}, nil
		}

		var errs []error
		view, err := ParseConsent(consent)
		if err != nil {
			glog.V(2).Infof("GDPR consent rejected: %v", err)
			errs = append(errs, &errortypes.Warning{
				Message:     err.Error(),
				WarningCode: errortypes.InvalidPrivacyConsentWarningCode,
			})
			// The fail-safe view answers the same for every malformed string.
			consent = ""
		}

		return &permissionsImpl{
			engine:    engine,
			view:      view,
			consent:   consent,
			vendorIDs: vendorIDs,
			cache:     cache,
			me:        me,
		}, errs
	}
}

type permissionsImpl struct {
	engine    *Engine
	view      ConsentView
	consent   string
	vendorIDs map[openrtb_ext.BidderName]uint16
	cache     ActionCache
	me        metrics.MetricsEngine
}

// EnforcementAction evaluates the bidder's vendor. Bidders without a vendor id are evaluated as
// vendor 0, which never has a legal basis.
func (p *permissionsImpl) EnforcementAction(bidder openrtb_ext.BidderName) PrivacyEnforcementAction {
	vendorID := p.vendorIDs[bidder]

	if action, ok := p.cache.Get(p.consent, vendorID); ok {
		p.me.RecordGDPRActionCacheResult(true)
		return action
	}
	p.me.RecordGDPRActionCacheResult(false)

	evaluation := p.engine.Evaluate(p.view, vendorID)
	p.cache.Set(p.consent, vendorID, evaluation.Action)

	if glog.V(2) {
		glog.Infof("GDPR action for %s (vendor %d): %+v", bidder, vendorID, evaluation.Action)
	}
	return evaluation.Action
}

// AlwaysAllow is used when GDPR does not apply to the auction.
type AlwaysAllow struct{}

func (AlwaysAllow) EnforcementAction(openrtb_ext.BidderName) PrivacyEnforcementAction {
	return PrivacyEnforcementAction{}
}
