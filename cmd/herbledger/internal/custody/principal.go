package custody

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// NormalizePrincipal canonicalises an already-authenticated caller identity.
// Ethereum-style addresses are rendered in EIP-55 checksum form so that the
// lower-case address reported by a wallet and its checksummed spelling name
// the same principal. Other identities are only trimmed.
func NormalizePrincipal(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("%w: principal is required", ErrInvalidInput)
	}
	if isHexAddress(p) {
		return checksumAddress(p[2:]), nil
	}
	return p, nil
}

func isHexAddress(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func checksumAddress(hexAddr string) string {
	lower := strings.ToLower(hexAddr)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
