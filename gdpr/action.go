package gdpr

// Flags is a bit set over the restrictions a PrivacyEnforcementAction can carry.
type Flags uint8

const (
	FlagRemoveUserIDs Flags = 1 << iota
	FlagMaskDeviceInfo
	FlagMaskGeo
	FlagBlockBidderRequest
)

// Has reports whether every flag in other is also set in f.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// PrivacyEnforcementAction lists the data minimization steps one vendor is subject to in one auction.
// The zero value restricts nothing.
type PrivacyEnforcementAction struct {
	RemoveUserIDs      bool
	MaskDeviceInfo     bool
	MaskGeo            bool
	BlockBidderRequest bool
}

// ActionFromFlags expands a flag set into an action.
func ActionFromFlags(f Flags) PrivacyEnforcementAction {
	return PrivacyEnforcementAction{
		RemoveUserIDs:      f.Has(FlagRemoveUserIDs),
		MaskDeviceInfo:     f.Has(FlagMaskDeviceInfo),
		MaskGeo:            f.Has(FlagMaskGeo),
		BlockBidderRequest: f.Has(FlagBlockBidderRequest),
	}
}

// Flags packs the action into a flag set.
func (a PrivacyEnforcementAction) Flags() Flags {
	var f Flags
	if a.RemoveUserIDs {
		f |= FlagRemoveUserIDs
	}
	if a.MaskDeviceInfo {
		f |= FlagMaskDeviceInfo
	}
	if a.MaskGeo {
		f |= FlagMaskGeo
	}
	if a.BlockBidderRequest {
		f |= FlagBlockBidderRequest
	}
	return f
}

// IsPermissive reports whether the action leaves the request untouched.
func (a PrivacyEnforcementAction) IsPermissive() bool {
	return a.Flags() == 0
}

// ActionDelta is what a single purpose contributes to a vendor's action. Set flags are forced on.
// Cleared flags are the ones the purpose would relax; a flag set by any purpose stays set.
type ActionDelta struct {
	Set     Flags
	Cleared Flags
}

// foldDeltas ORs the Set flags of every delta onto a permissive action.
func foldDeltas(deltas []ActionDelta) PrivacyEnforcementAction {
	var set Flags
	for _, delta := range deltas {
		set |= delta.Set
	}
	return ActionFromFlags(set)
}
