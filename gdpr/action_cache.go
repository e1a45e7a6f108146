package gdpr

import (
	"strconv"

	"github.com/coocood/freecache"
)

// ActionCache memoizes enforcement actions by consent string and vendor.
type ActionCache interface {
	Get(consent string, vendorID uint16) (PrivacyEnforcementAction, bool)
	Set(consent string, vendorID uint16, action PrivacyEnforcementAction)
}

// NewActionCache returns a freecache backed ActionCache of size bytes. A size of zero disables caching.
func NewActionCache(size int) ActionCache {
	if size <= 0 {
		return nilActionCache{}
	}
	return &freecacheActionCache{cache: freecache.NewCache(size)}
}

type freecacheActionCache struct {
	cache *freecache.Cache
}

func actionCacheKey(consent string, vendorID uint16) []byte {
	return []byte(strconv.FormatUint(uint64(vendorID), 10) + ":" + consent)
}

func (c *freecacheActionCache) Get(consent string, vendorID uint16) (PrivacyEnforcementAction, bool) {
	value, err := c.cache.Get(actionCacheKey(consent, vendorID))
	if err != nil || len(value) != 1 {
		return PrivacyEnforcementAction{}, false
	}
	return ActionFromFlags(Flags(value[0])), true
}

func (c *freecacheActionCache) Set(consent string, vendorID uint16, action PrivacyEnforcementAction) {
	// An entry too large for the cache is simply not stored.
	_ = c.cache.Set(actionCacheKey(consent, vendorID), []byte{byte(action.Flags())}, 0)
}

type nilActionCache struct{}

func (nilActionCache) Get(string, uint16) (PrivacyEnforcementAction, bool) {
	return PrivacyEnforcementAction{}, false
}

func (nilActionCache) Set(string, uint16, PrivacyEnforcementAction) {}
