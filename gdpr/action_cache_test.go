package gdpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionCache(t *testing.T) {
	cache := NewActionCache(1024 * 1024)
	action := PrivacyEnforcementAction{RemoveUserIDs: true, MaskGeo: true}

	_, ok := cache.Get("consent", 52)
	assert.False(t, ok)

	cache.Set("consent", 52, action)

	cached, ok := cache.Get("consent", 52)
	assert.True(t, ok)
	assert.Equal(t, action, cached)

	_, ok = cache.Get("consent", 909)
	assert.False(t, ok, "vendor is part of the key")

	_, ok = cache.Get("other", 52)
	assert.False(t, ok, "consent is part of the key")
}

func TestActionCacheDisabled(t *testing.T) {
	cache := NewActionCache(0)
	cache.Set("consent", 52, PrivacyEnforcementAction{MaskGeo: true})

	_, ok := cache.Get("consent", 52)
	assert.False(t, ok)
}
