package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryCodeRoundTrip(t *testing.T) {
	code, err := LibraryCode(42)
	require.NoError(t, err)
	assert.NotZero(t, code&LibraryMask)

	offset, err := LibraryOffset(code)
	require.NoError(t, err)
	assert.Equal(t, MessageCode(42), offset)
}

func TestLibraryCodeRejectsMaskedOffset(t *testing.T) {
	_, err := LibraryCode(LibraryMask | 1)
	assert.ErrorIs(t, err, ErrInvalidMessageCode)
}

func TestLibraryOffsetRejectsUserCode(t *testing.T) {
	_, err := LibraryOffset(42)
	assert.ErrorIs(t, err, ErrInvalidMessageCode)
}

func TestBuiltinCodesCarryTheMask(t *testing.T) {
	for _, code := range []MessageCode{CodeOrder, CodeQuote} {
		assert.NotZero(t, code&LibraryMask)
	}
	assert.NotEqual(t, CodeOrder, CodeQuote)
}
