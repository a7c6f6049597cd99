// Package codec packs and unpacks the fixed-width integers and records used
// by the vault programs' instruction payloads and account data. All multi-byte
// fields are little-endian, which is what the programs read.
package codec

import (
	"bytes"
	"math"
	"math/big"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

const (
	U64Size = 8
	F64Size = 8
)

var maxU64 = new(big.Int).SetUint64(math.MaxUint64)

// EncodeU64 returns the 8 byte little-endian image of v. The full u64 domain
// is supported, including values with the top bit set.
func EncodeU64(v uint64) []byte {
	buf := new(bytes.Buffer)
	// writes to a bytes.Buffer cannot fail
	_ = bin.NewBinEncoder(buf).WriteUint64(v, bin.LE)
	return buf.Bytes()
}

// DecodeU64 reads a little-endian u64 from the first 8 bytes of b.
func DecodeU64(b []byte) (uint64, error) {
	if len(b) < U64Size {
		return 0, &LayoutError{Layout: "u64", Want: U64Size, Got: len(b)}
	}
	v, err := bin.NewBinDecoder(b[:U64Size]).ReadUint64(bin.LE)
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode u64")
	}
	return v, nil
}

// EncodeF64 returns the raw IEEE-754 little-endian image of v.
//
// Only the tip program's legacy fee slot is a float. Amounts always go through
// EncodeU64.
func EncodeF64(v float64) []byte {
	buf := new(bytes.Buffer)
	_ = bin.NewBinEncoder(buf).WriteFloat64(v, bin.LE)
	return buf.Bytes()
}

// DecodeF64 reads an IEEE-754 little-endian float from the first 8 bytes of b.
func DecodeF64(b []byte) (float64, error) {
	if len(b) < F64Size {
		return 0, &LayoutError{Layout: "f64", Want: F64Size, Got: len(b)}
	}
	v, err := bin.NewBinDecoder(b[:F64Size]).ReadFloat64(bin.LE)
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode f64")
	}
	return v, nil
}

// U64FromBig narrows an arbitrary precision integer to a u64. Negative values
// and values of 2^64 or more are rejected with a DomainError.
func U64FromBig(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, &DomainError{Field: "amount", Value: "<nil>", Reason: "missing value"}
	}
	if v.Sign() < 0 {
		return 0, &DomainError{Field: "amount", Value: v.String(), Reason: "negative"}
	}
	if v.Cmp(maxU64) > 0 {
		return 0, &DomainError{Field: "amount", Value: v.String(), Reason: "exceeds 64 bits"}
	}
	return v.Uint64(), nil
}

// ParseAmount parses a decimal or 0x-prefixed hex integer into a u64.
func ParseAmount(s string) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	digits, base := s, 10
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits, base = digits[2:], 16
	}
	v, ok := new(big.Int).SetString(digits, base)
	if ok && neg {
		v.Neg(v)
	}
	if !ok || strings.ContainsAny(digits, "+-") {
		return 0, &DomainError{Field: "amount", Value: s, Reason: "not an integer"}
	}
	return U64FromBig(v)
}

// WrappingNeg returns 2^64 - v, the two's-complement negation of v.
func WrappingNeg(v uint64) uint64 {
	return ^v + 1
}
