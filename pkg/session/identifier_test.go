package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDSanitizesBase(t *testing.T) {
	id := GenerateID("My Project! v2")
	assert.True(t, strings.HasPrefix(id, "my-project--v2-"), "got %q", id)
	assert.NoError(t, ValidateID(id))
}

func TestGenerateIDEmptyBase(t *testing.T) {
	id := GenerateID("   ")
	assert.True(t, strings.HasPrefix(id, "session-"), "got %q", id)
	assert.NoError(t, ValidateID(id))
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID("conv")
		require.False(t, seen[id], "duplicate ID %q", id)
		seen[id] = true
	}
}

func TestDefaultIDIsValid(t *testing.T) {
	assert.NoError(t, ValidateID(DefaultID()))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("conv-01HX"))
	assert.NoError(t, ValidateID("a_b-c9"))

	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("  "))
	assert.Error(t, ValidateID("../escape"))
	assert.Error(t, ValidateID("has space"))
	assert.Error(t, ValidateID("-leading-dash"))
}
