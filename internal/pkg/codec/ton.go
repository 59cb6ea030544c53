package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

const tonFriendlyLength = 48

// TONAddress is a workchain id plus the 32-byte account hash, with the user-friendly flags.
type TONAddress struct {
	Workchain  int8
	Hash       [32]byte
	Bounceable bool
	Testnet    bool
}

// ParseTONAddress accepts the raw "wc:hex" form and the 48-character user-friendly
// form in both standard and url-safe base64.
func ParseTONAddress(s string) (TONAddress, error) {
	s = strings.TrimSpace(s)

	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(s, ":") {
		addr, err = address.ParseRawAddr(s)
	} else {
		if len(s) != tonFriendlyLength {
			return TONAddress{}, fmt.Errorf("ton address must be %d characters, got %d", tonFriendlyLength, len(s))
		}
		addr, err = address.ParseAddr(strings.NewReplacer("+", "-", "/", "_").Replace(s))
	}
	if err != nil {
		return TONAddress{}, fmt.Errorf("ton address %q: %w", s, err)
	}
	return fromLibrary(addr)
}

func fromLibrary(addr *address.Address) (TONAddress, error) {
	data := addr.Data()
	if len(data) != 32 {
		return TONAddress{}, fmt.Errorf("ton hash must be 32 bytes, got %d", len(data))
	}
	wc := addr.Workchain()
	if wc < -128 || wc > 127 {
		return TONAddress{}, fmt.Errorf("ton workchain %d out of range", wc)
	}
	a := TONAddress{
		Workchain:  int8(wc),
		Bounceable: addr.IsBounceable(),
		Testnet:    addr.IsTestnetOnly(),
	}
	copy(a.Hash[:], data)
	return a, nil
}

// ValidateTONAddress reports whether s parses as a TON address.
func ValidateTONAddress(s string) bool {
	_, err := ParseTONAddress(s)
	return err == nil
}

// Raw returns the "wc:hex" form used by tonapi in responses.
func (a TONAddress) Raw() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Hash[:]))
}

// String returns the url-safe user-friendly form with the address flags.
func (a TONAddress) String() string {
	addr := address.NewAddress(0, byte(a.Workchain), append([]byte(nil), a.Hash[:]...))
	addr.SetBounce(a.Bounceable)
	addr.SetTestnetOnly(a.Testnet)
	return addr.String()
}

// WithBounce returns a copy with the bounceable flag set as requested.
func (a TONAddress) WithBounce(bounceable bool) TONAddress {
	a.Bounceable = bounceable
	return a
}

// SameTONAccount compares two addresses by workchain and hash, ignoring flags and encoding.
func SameTONAccount(a, b string) bool {
	x, err := ParseTONAddress(a)
	if err != nil {
		return false
	}
	y, err := ParseTONAddress(b)
	if err != nil {
		return false
	}
	return x.Workchain == y.Workchain && x.Hash == y.Hash
}
