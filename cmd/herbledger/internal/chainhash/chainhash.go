// Package chainhash computes the tamper-evident fingerprints that link
// ledger events into a single append-only chain.
package chainhash

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/btcsuite/btcutil/base58"
)

// Genesis is the predecessor fingerprint of the first event in a chain.
const Genesis = "genesis"

// Link returns the fingerprint of payload chained onto prev. Changing either
// the predecessor or any payload field changes the result.
func Link(prev string, payload any) string {
	canonical := Canonical(payload)
	if canonical == nil {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte{0})
	h.Write(canonical)
	return base58.Encode(h.Sum(nil))
}

// Canonical produces deterministic JSON: object keys are sorted at every level.
func Canonical(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte("null")

	case bool, float64, int, int64, uint8, string:
		b, _ := json.Marshal(val)
		return b

	case []any:
		elements := make([][]byte, 0, len(val))
		for _, elem := range val {
			elements = append(elements, Canonical(elem))
		}
		return join('[', ']', elements)

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([][]byte, 0, len(keys))
		for _, k := range keys {
			keyJSON, _ := json.Marshal(k)
			pair := append(keyJSON, ':')
			pair = append(pair, Canonical(val[k])...)
			pairs = append(pairs, pair)
		}
		return join('{', '}', pairs)

	default:
		// Structs and other types go through a JSON round trip so their
		// keys get sorted like any other object.
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return nil
		}
		return Canonical(generic)
	}
}

func join(open, close byte, parts [][]byte) []byte {
	result := []byte{open}
	for i, p := range parts {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, p...)
	}
	return append(result, close)
}

// Short returns a truncated fingerprint for display (first 12 characters).
func Short(fingerprint string) string {
	if len(fingerprint) <= 12 {
		return fingerprint
	}
	return fmt.Sprintf("%s...", fingerprint[:12])
}
