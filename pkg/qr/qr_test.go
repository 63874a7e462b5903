package qr

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	url, err := NewGenerator().Generate(`{"passNumber":"PASS-1-2"}`)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, dataURLPrefix))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPrefix))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestGenerator_EmptyContent(t *testing.T) {
	_, err := NewGenerator().Generate("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestPassPayload(t *testing.T) {
	payload, err := PassPayload("PASS-1718000000000-42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"passNumber":"PASS-1718000000000-42"}`, payload)

	number, err := ParsePassPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "PASS-1718000000000-42", number)
}

func TestParsePassPayload(t *testing.T) {
	number, err := ParsePassPayload("  PASS-1-2 ")
	require.NoError(t, err)
	assert.Equal(t, "PASS-1-2", number)

	_, err = ParsePassPayload(`{"passNumber":""}`)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ParsePassPayload(`{"passNumber":`)
	assert.Error(t, err)

	_, err = ParsePassPayload("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
