package codec

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcutil/base58"
)

// SolanaKeyLength is the size of an Ed25519 public key.
const SolanaKeyLength = 32

// DecodeBase58 decodes the bitcoin-alphabet base58 used by Solana.
func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty base58 string")
	}
	b := base58.Decode(s)
	// base58.Decode signals bad input with an empty slice
	if len(b) == 0 {
		return nil, errors.New("invalid base58 string")
	}
	return b, nil
}

// EncodeBase58 encodes b with the bitcoin alphabet.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// IsOnCurve reports whether pub is the encoding of a point on the Ed25519 curve.
func IsOnCurve(pub []byte) bool {
	if len(pub) != SolanaKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}

// ValidateSolanaAddress accepts base58 32-byte keys that lie on the curve, i.e. wallet keys.
func ValidateSolanaAddress(s string) bool {
	b, err := DecodeBase58(s)
	if err != nil {
		return false
	}
	return IsOnCurve(b)
}

// ValidateSolanaMint accepts any base58 32-byte key. Mints may be program-derived and off-curve.
func ValidateSolanaMint(s string) bool {
	b, err := DecodeBase58(s)
	return err == nil && len(b) == SolanaKeyLength
}
