package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	a := Key("gpt-4o", "1. finding")

	assert.True(t, strings.HasPrefix(a, "medvision:classify:"))
	assert.Len(t, strings.TrimPrefix(a, "medvision:classify:"), 64)
	assert.Equal(t, a, Key("gpt-4o", "1. finding"))
	assert.NotEqual(t, a, Key("gpt-4o-mini", "1. finding"))
	assert.NotEqual(t, a, Key("gpt-4o", "1. findings"))
	// model and content boundaries are not ambiguous
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

var _ Cache = (*RedisCache)(nil)
