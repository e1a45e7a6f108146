package gdpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionFlagsRoundTrip(t *testing.T) {
	for f := Flags(0); f < FlagBlockBidderRequest<<1; f++ {
		assert.Equal(t, f, ActionFromFlags(f).Flags())
	}
}

func TestIsPermissive(t *testing.T) {
	assert.True(t, PrivacyEnforcementAction{}.IsPermissive())
	assert.False(t, PrivacyEnforcementAction{MaskGeo: true}.IsPermissive())
}

func TestFoldDeltas(t *testing.T) {
	testCases := []struct {
		description string
		deltas      []ActionDelta
		expected    PrivacyEnforcementAction
	}{
		{
			description: "no-deltas",
			expected:    PrivacyEnforcementAction{},
		},
		{
			description: "clears-only",
			deltas:      []ActionDelta{{Cleared: userAndDevice}, {Cleared: FlagMaskGeo}},
			expected:    PrivacyEnforcementAction{},
		},
		{
			description: "set-survives-later-clear",
			deltas:      []ActionDelta{{Set: FlagMaskGeo}, {Cleared: FlagMaskGeo | userAndDevice}},
			expected:    PrivacyEnforcementAction{MaskGeo: true},
		},
		{
			description: "set-survives-earlier-clear",
			deltas:      []ActionDelta{{Cleared: FlagBlockBidderRequest}, {Set: FlagBlockBidderRequest}},
			expected:    PrivacyEnforcementAction{BlockBidderRequest: true},
		},
		{
			description: "union",
			deltas:      []ActionDelta{{Set: FlagRemoveUserIDs}, {Set: FlagMaskDeviceInfo}},
			expected:    PrivacyEnforcementAction{RemoveUserIDs: true, MaskDeviceInfo: true},
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, foldDeltas(test.deltas), test.description)
	}
}
