// Package content is the content-addressed store that holds stage metadata
// documents and their attachments. The ledger only ever sees the returned
// content ids.
package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// URIScheme prefixes content ids embedded in metadata documents.
const URIScheme = "ipfs://"

// DefaultGateway resolves content ids over HTTP.
const DefaultGateway = "https://ipfs.io/ipfs"

// ErrNotFound is returned when no block exists for a content id.
var ErrNotFound = errors.New("content: not found")

// IsURI reports whether s is an ipfs:// link.
func IsURI(s string) bool {
	return strings.HasPrefix(s, URIScheme)
}

// NormalizeCID strips the ipfs:// scheme and surrounding whitespace.
func NormalizeCID(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), URIScheme)
}

// URI renders id as an ipfs:// link.
func URI(id string) string {
	return URIScheme + NormalizeCID(id)
}

// ParseCID validates a bare or ipfs:// prefixed content id.
func ParseCID(s string) (cid.Cid, error) {
	c, err := cid.Decode(NormalizeCID(s))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: content id %q: %v", custody.ErrInvalidInput, s, err)
	}
	return c, nil
}

// GatewayURL converts a bare or ipfs:// content id into an HTTP gateway URL.
// An empty base uses DefaultGateway. Empty input yields "".
func GatewayURL(base, cidOrURI string) string {
	id := NormalizeCID(cidOrURI)
	if id == "" {
		return ""
	}
	if base == "" {
		base = DefaultGateway
	}
	return strings.TrimRight(base, "/") + "/" + id
}
