package codec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// ValidateEVMAddress accepts 0x-prefixed 20-byte hex. All-lower and all-upper hex skip the
// checksum; mixed case must match EIP-55.
func ValidateEVMAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return "0x"+body == ChecksumHex(body)
}

// ChecksumEVMAddress validates s and returns its EIP-55 form.
func ChecksumEVMAddress(s string) (string, error) {
	if !ValidateEVMAddress(s) {
		return "", fmt.Errorf("invalid EVM address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// ChecksumHex applies EIP-55 casing to 40 hex characters.
func ChecksumHex(body string) string {
	lower := strings.ToLower(body)
	hash := Keccak256([]byte(lower))
	out := []byte(lower)
	for i, ch := range out {
		if ch < 'a' || ch > 'f' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = ch - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
