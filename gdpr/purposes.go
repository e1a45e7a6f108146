package gdpr

import (
	"github.com/prebid/go-gdpr/consentconstants"
)

// purposeRule holds what a purpose does to a vendor's action when its legal basis is missing
// (restrict) and when it is present (allowNaturally). The two are not mirror images for every purpose.
type purposeRule struct {
	name           string
	restrict       ActionDelta
	allowNaturally ActionDelta
}

const (
	userAndDevice = FlagRemoveUserIDs | FlagMaskDeviceInfo
)

var purposeRules = map[consentconstants.Purpose]purposeRule{
	1: {
		name:           "store and access information on a device",
		restrict:       ActionDelta{Set: userAndDevice},
		allowNaturally: ActionDelta{Cleared: userAndDevice},
	},
	2: {
		name:           "select basic ads",
		restrict:       ActionDelta{Set: FlagBlockBidderRequest},
		allowNaturally: ActionDelta{Cleared: FlagBlockBidderRequest},
	},
	3: {
		name:           "create a personalised ads profile",
		restrict:       ActionDelta{Set: userAndDevice},
		allowNaturally: ActionDelta{Cleared: userAndDevice},
	},
	4: {
		name:           "select personalised ads",
		restrict:       ActionDelta{Set: userAndDevice | FlagMaskGeo},
		allowNaturally: ActionDelta{Cleared: userAndDevice | FlagMaskGeo},
	},
	5: {
		name:           "create a personalised content profile",
		restrict:       ActionDelta{Set: userAndDevice},
		allowNaturally: ActionDelta{Cleared: userAndDevice},
	},
	6: {
		name:           "select personalised content",
		restrict:       ActionDelta{Set: userAndDevice},
		allowNaturally: ActionDelta{Cleared: userAndDevice},
	},
	7: {
		name:     "measure ad performance",
		restrict: ActionDelta{Set: userAndDevice},
	},
	8: {
		name:     "measure content performance",
		restrict: ActionDelta{Set: userAndDevice},
	},
	9: {
		name:     "apply market research to generate audience insights",
		restrict: ActionDelta{Set: userAndDevice},
	},
	// Purpose 10 never restricts, yet relaxes user ids and device info when its basis is present.
	10: {
		name:           "develop and improve products",
		allowNaturally: ActionDelta{Cleared: userAndDevice},
	},
}

// purposeOrder is the evaluation order for every vendor.
var purposeOrder = []consentconstants.Purpose{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
