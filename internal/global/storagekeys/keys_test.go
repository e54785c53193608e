package storagekeys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_CollisionFree(t *testing.T) {
	seen := make(map[Key]bool)
	for _, k := range All() {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
		assert.True(t, strings.HasPrefix(k.String(), Prefix), "key %s must be namespaced", k)
	}
	assert.Len(t, seen, 12)
}

func TestEvictable_SubsetOfRegistry(t *testing.T) {
	all := make(map[Key]bool)
	for _, k := range All() {
		all[k] = true
	}
	for _, k := range Evictable() {
		assert.True(t, all[k], "evictable key %s not registered", k)
		assert.NotEqual(t, Campaigns, k)
		assert.NotEqual(t, Users, k)
	}
}

func TestRetained_DisjointFromEvictable(t *testing.T) {
	all := make(map[Key]bool)
	for _, k := range All() {
		all[k] = true
	}
	evictable := make(map[Key]bool)
	for _, k := range Evictable() {
		evictable[k] = true
	}
	for _, k := range Retained() {
		assert.True(t, all[k], "retained key %s not registered", k)
		assert.False(t, evictable[k], "retained key %s is evictable", k)
	}
	assert.NotContains(t, Retained(), Payments)
}

func TestNamespaced(t *testing.T) {
	assert.Equal(t, Key("fundverse_draft"), Namespaced("draft"))
	assert.Equal(t, Campaigns, Namespaced("fundverse_campaigns"))
}

func TestAll_ReturnsCopy(t *testing.T) {
	keys := All()
	keys[0] = "tampered"
	assert.Equal(t, CurrentUser, All()[0])
}
