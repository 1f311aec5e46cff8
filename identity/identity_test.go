package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSteamForms(t *testing.T) {
	fromText, err := Normalize("STEAM_0:1:12345")
	require.NoError(t, err)

	from64, err := Normalize("76561197960290419")
	require.NoError(t, err)
	assert.Equal(t, fromText, from64)

	from3, err := Normalize("[U:1:24691]")
	require.NoError(t, err)
	assert.Equal(t, fromText, from3)
}

func TestNormalizePassthrough(t *testing.T) {
	id, err := Normalize("  bot-7 ")
	require.NoError(t, err)
	assert.Equal(t, "bot-7", string(id))
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize("   ")
	assert.ErrorIs(t, err, ErrInvalidID)
}
