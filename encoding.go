package lnaddy

import (
	"strings"

	"github.com/fiatjaf/go-lnurl"
)

// DecodeURL decodes a bech32 LNURL string back into the wrapped URL.
func DecodeURL(code string) (string, error) {
	return lnurl.LNURLDecode(code)
}

// EncodeURL wraps a URL in the bech32 LNURL encoding wallets scan.
func EncodeURL(url string) (string, error) {
	str, err := lnurl.LNURLEncode(url)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}
