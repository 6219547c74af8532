package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	for range 200 {
		code, err := GenerateNumericCode(8)
		require.NoError(t, err)
		require.GreaterOrEqual(t, code, uint32(10_000_000))
		require.LessOrEqual(t, code, uint32(99_999_999))
	}

	code, err := GenerateNumericCode(1)
	require.NoError(t, err)
	require.Less(t, code, uint32(10))
}

func TestGenerateNumericCode_InvalidLength(t *testing.T) {
	for _, digits := range []int{0, -1, 10} {
		_, err := GenerateNumericCode(digits)
		require.Error(t, err)
	}
}
