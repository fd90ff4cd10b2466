// Package scalar defines the opaque scalar capability that result columns are
// generic over, and a field-element implementation of it.
//
// The resultset packages never do arithmetic on scalars. They only compare
// them, and encoders render them through String and Bytes.
package scalar

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// Size is the encoded width of a FieldElement in bytes.
const Size = fr.Bytes

// ErrNonCanonical is returned when decoding bytes that do not encode a
// reduced field element.
var ErrNonCanonical = errors.New("non-canonical scalar encoding")

// Scalar is the capability a column's scalar variant is built over.
type Scalar interface {
	comparable
	String() string
	Bytes() []byte
}

// Decoder rebuilds a scalar from the output of its Bytes method.
type Decoder[S Scalar] func([]byte) (S, error)

// FieldElement is an element of the BLS12-377 scalar field.
type FieldElement struct {
	e fr.Element
}

// FromInt64 maps v into the field; negative values wrap modulo the field order.
func FromInt64(v int64) FieldElement {
	var f FieldElement
	f.e.SetInt64(v)
	return f
}

// FromBigInt reduces v modulo the field order.
func FromBigInt(v *big.Int) FieldElement {
	var f FieldElement
	f.e.SetBigInt(v)
	return f
}

// FromBytes decodes a 32-byte big-endian canonical encoding.
func FromBytes(b []byte) (FieldElement, error) {
	var f FieldElement
	if len(b) != Size {
		return f, rserrors.Wrap(ErrNonCanonical, rserrors.ErrorTypeData, "scalar has wrong width").
			WithDetail("width", len(b))
	}
	if err := f.e.SetBytesCanonical(b); err != nil {
		return FieldElement{}, rserrors.Wrap(ErrNonCanonical, rserrors.ErrorTypeData, err.Error())
	}
	return f, nil
}

// Decode is the Decoder for FieldElement.
var Decode Decoder[FieldElement] = FromBytes

// String returns the decimal representation.
func (f FieldElement) String() string {
	return f.e.String()
}

// Bytes returns the 32-byte big-endian canonical encoding.
func (f FieldElement) Bytes() []byte {
	b := f.e.Bytes()
	return b[:]
}

// BigInt returns the canonical integer value in [0, q).
func (f FieldElement) BigInt() *big.Int {
	return f.e.BigInt(new(big.Int))
}

// IsZero reports whether f is the additive identity.
func (f FieldElement) IsZero() bool {
	return f.e.IsZero()
}
