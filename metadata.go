package lnaddy

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
)

// Metadata renders the canonical LNURL-pay metadata for a description: a JSON
// array holding a single ["text/plain", description] pair. Both protocol
// phases must serve the exact same bytes for the same record, since wallets
// verify the invoice description hash against the SHA256 of this string.
func Metadata(description string) string {
	b, err := json.Marshal([][2]string{
		{"text/plain", description},
	})
	if err != nil {
		// A [][2]string can always be marshalled. If this fires, the
		// hash-binding contract is already broken.
		panic(fmt.Sprintf("metadata encoding: %v", err))
	}

	return string(b)
}

// MetadataHash is the SHA256 of the metadata string, the value embedded as
// the invoice's description hash.
func MetadataHash(metadata string) lntypes.Hash {
	return lntypes.Hash(sha256.Sum256([]byte(metadata)))
}

// PayLabel is the human readable label attached to invoices issued for a
// lightning address payment.
func PayLabel(username, domain string) string {
	return fmt.Sprintf("Payment to %s@%s", username, domain)
}
