package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", NormalizeEmail("Ann@Example.COM"))
	assert.Equal(t, "ann@example.com", NormalizeEmail("  ann@example.com "))
}

func TestNormalizePhone_BareAndPrefixedCollapse(t *testing.T) {
	bare, err := NormalizePhone("9876543210", "IN")
	require.NoError(t, err)

	prefixed, err := NormalizePhone("+91 98765 43210", "IN")
	require.NoError(t, err)

	assert.Equal(t, "+919876543210", bare)
	assert.Equal(t, bare, prefixed)
}

func TestNormalizePhone_RegionApplies(t *testing.T) {
	us, err := NormalizePhone("(212) 555-0123", "US")
	require.NoError(t, err)
	assert.Equal(t, "+12125550123", us)
}

func TestNormalizePhone_Invalid(t *testing.T) {
	_, err := NormalizePhone("12345", "IN")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	_, err = NormalizePhone("not-a-number", "IN")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
