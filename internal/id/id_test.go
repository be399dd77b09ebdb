package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	// Generate many IDs and verify they're unique
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate(ManualPrefix)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate(ManualPrefix)
	require.NoError(t, err)

	// Should start with prefix followed by hyphen
	assert.True(t, strings.HasPrefix(id, ManualPrefix+"-"))

	// NanoID default is 21 characters
	nanoidPart := strings.TrimPrefix(id, ManualPrefix+"-")
	assert.Len(t, nanoidPart, 21, "NanoID part should be 21 characters")

	// Check all characters are URL-safe (NanoID uses: A-Za-z0-9_-)
	for _, char := range nanoidPart {
		assert.True(t,
			(char >= 'A' && char <= 'Z') ||
				(char >= 'a' && char <= 'z') ||
				(char >= '0' && char <= '9') ||
				char == '_' || char == '-',
			"Character %c should be URL-safe", char)
	}

	// Manual ids must never collide with provider-namespaced ids, which
	// always contain a ':' separator.
	assert.NotContains(t, id, ":")
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate("test")

	assert.True(t, strings.HasPrefix(id, "test-"))
	assert.Equal(t, len("test")+1+21, len(id))
}
