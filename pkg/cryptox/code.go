package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a uniformly random code with exactly digits
// decimal digits (no leading zero), e.g. 8 digits gives 10000000..99999999.
func GenerateNumericCode(digits int) (uint32, error) {
	if digits < 1 || digits > 9 {
		return 0, fmt.Errorf("cryptox: unsupported code length %d", digits)
	}

	low := int64(1)
	for range digits - 1 {
		low *= 10
	}
	span := low*10 - low
	if digits == 1 {
		low, span = 0, 10
	}

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, fmt.Errorf("cryptox: generate code: %w", err)
	}
	return uint32(low + n.Int64()), nil // #nosec G115 - below 10^9
}
