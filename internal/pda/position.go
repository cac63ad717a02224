// Package pda derives the deterministic position account addresses the
// settlement program allocates per owner, custody pair and side.
package pda

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-perp-history/internal/domain"
)

// positionSeed is the constant seed prefix used by the settlement program.
var positionSeed = []byte("position")

// DerivePosition returns the position account address for one
// (owner, custody, collateral custody, side) slot. Pure and stateless.
func DerivePosition(programID, owner, custody, collateralCustody string, side domain.Side) (domain.PositionIdentifier, error) {
	programBytes, err := decodeKey(programID, "program id")
	if err != nil {
		return "", err
	}
	ownerBytes, err := decodeKey(owner, "owner")
	if err != nil {
		return "", err
	}
	custodyBytes, err := decodeKey(custody, "custody")
	if err != nil {
		return "", err
	}
	collateralBytes, err := decodeKey(collateralCustody, "collateral custody")
	if err != nil {
		return "", err
	}
	if side != domain.SideLong && side != domain.SideShort {
		return "", fmt.Errorf("derive position: side must be long or short")
	}

	seeds := [][]byte{
		positionSeed,
		ownerBytes,
		custodyBytes,
		collateralBytes,
		{byte(side)},
	}

	addr := Derive(seeds, programBytes)
	if addr == "" {
		return "", fmt.Errorf("derive position: no off-curve bump found")
	}
	return domain.PositionIdentifier(addr), nil
}

// Derive derives a Program Derived Address using the Solana algorithm:
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), searching
// bumps downward from 255 for the first off-curve point.
func Derive(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

func decodeKey(s, what string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("decode %s: expected 32 bytes, got %d", what, len(b))
	}
	return b, nil
}
