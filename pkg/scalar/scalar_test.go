package scalar

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromInt64(t *testing.T) {
	assert.Equal(t, "42", FromInt64(42).String())
	assert.True(t, FromInt64(0).IsZero())
	assert.Equal(t, FromInt64(7), FromBigInt(big.NewInt(7)))
}

func TestNegativeWraps(t *testing.T) {
	want := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	assert.Equal(t, 0, want.Cmp(FromInt64(-1).BigInt()))
}

func TestBytesRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 1 << 40, -3} {
		f := FromInt64(v)
		b := f.Bytes()
		require.Len(t, b, Size)

		decoded, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestFromBytesRejects(t *testing.T) {
	_, err := FromBytes(make([]byte, 4))
	assert.ErrorIs(t, err, ErrNonCanonical)

	over := make([]byte, Size)
	for i := range over {
		over[i] = 0xff
	}
	_, err = FromBytes(over)
	assert.ErrorIs(t, err, ErrNonCanonical)
}
