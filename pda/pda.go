// Package pda derives program-owned addresses the same way the runtime does.
//
// A program derived address is sha256(seeds || program id || marker) where the
// result must not decode as an ed25519 point, so that no private key for it
// can exist. The bump seed is one extra trailing seed byte searched from 255
// downward until the hash falls off the curve.
package pda

import (
	"crypto/sha256"
	"math"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32

	marker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrOnCurve               = errors.New("derived address lies on the ed25519 curve")
	ErrExhaustedBumpSeeds    = errors.New("no bump seed in [0, 255] yields an off-curve address")
)

var (
	programHashCtor = sha256.New
)

// CreateProgramAddress hashes seeds and the program id into an address. If
// the result is a valid curve point, ErrOnCurve is returned.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return solana.PublicKey{}, ErrTooManySeeds
	}

	h := programHashCtor()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return solana.PublicKey{}, ErrMaxSeedLengthExceeded
		}
		if _, err := h.Write(s); err != nil {
			return solana.PublicKey{}, errors.Wrap(err, "failed to hash seed")
		}
	}
	for _, v := range [][]byte{programID[:], []byte(marker)} {
		if _, err := h.Write(v); err != nil {
			return solana.PublicKey{}, errors.Wrap(err, "failed to hash seed")
		}
	}

	addr := solana.PublicKeyFromBytes(h.Sum(nil))
	if IsOnCurve(addr[:]) {
		return solana.PublicKey{}, ErrOnCurve
	}
	return addr, nil
}

// Derive searches bump seeds from 255 down to 0 and returns the first
// off-curve address with its bump. Identical inputs always produce identical
// outputs.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func Derive(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	if len(seeds)+1 > MaxSeeds {
		return solana.PublicKey{}, 0, ErrTooManySeeds
	}

	candidate := make([][]byte, len(seeds)+1)
	copy(candidate, seeds)

	bump := []byte{0}
	for b := math.MaxUint8; b >= 0; b-- {
		bump[0] = uint8(b)
		candidate[len(seeds)] = bump

		addr, err := CreateProgramAddress(programID, candidate...)
		if err == nil {
			return addr, uint8(b), nil
		}
		if err != ErrOnCurve {
			return solana.PublicKey{}, 0, err
		}
	}

	return solana.PublicKey{}, 0, ErrExhaustedBumpSeeds
}

// DeriveWithExplicitBump recomputes the address for a known bump without
// searching. It fails with ErrOnCurve when that bump does not produce a valid
// program address.
func DeriveWithExplicitBump(programID solana.PublicKey, bump uint8, seeds ...[]byte) (solana.PublicKey, error) {
	candidate := make([][]byte, 0, len(seeds)+1)
	candidate = append(candidate, seeds...)
	candidate = append(candidate, []byte{bump})
	return CreateProgramAddress(programID, candidate...)
}

// IsOnCurve reports whether b decodes as a point on the ed25519 curve.
func IsOnCurve(b []byte) bool {
	if len(b) != solana.PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
