package lnaddy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
)

// Success action kinds a record may configure. The set is closed: anything
// else stored on a record is rejected at render time.
const (
	ActionNone    = ""
	ActionMessage = "message"
	ActionURL     = "url"
	ActionAES     = "aes"
)

// SuccessAction is the wallet-facing action descriptor returned alongside an
// invoice. Exactly the fields for the given Tag are populated.
type SuccessAction struct {
	Tag         string `json:"tag"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Ciphertext  string `json:"ciphertext,omitempty"`
	IV          string `json:"iv,omitempty"`
}

// SuccessActionConfig is the per-record configuration from which an action is
// rendered once a payment hash is known.
type SuccessActionConfig struct {
	// Tag selects the action kind, one of the Action constants. ActionNone
	// means the callback response carries no successAction field.
	Tag string

	// Message is shown to the payer for ActionMessage, and doubles as the
	// description for ActionURL and ActionAES.
	Message string

	// URL to open for ActionURL.
	URL string

	// Secret is the plaintext revealed to the payer for ActionAES.
	Secret string
}

// Render produces the action descriptor for a settled-to-be payment, or nil
// when the record configures none.
func (cfg *SuccessActionConfig) Render(paymentHash lntypes.Hash) (*SuccessAction,
	error) {

	switch cfg.Tag {
	case ActionNone:
		return nil, nil

	case ActionMessage:
		return &SuccessAction{
			Tag:     ActionMessage,
			Message: cfg.Message,
		}, nil

	case ActionURL:
		return &SuccessAction{
			Tag:         ActionURL,
			Description: cfg.Message,
			URL:         cfg.URL,
		}, nil

	case ActionAES:
		ciphertext, iv, err := encryptSecret(
			paymentHash[:], []byte(cfg.Secret),
		)
		if err != nil {
			return nil, fmt.Errorf("could not encrypt success "+
				"action secret: %w", err)
		}

		return &SuccessAction{
			Tag:         ActionAES,
			Description: cfg.Message,
			Ciphertext:  ciphertext,
			IV:          iv,
		}, nil

	default:
		return nil, fmt.Errorf("unknown success action tag '%s'",
			cfg.Tag)
	}
}

// encryptSecret encrypts the secret with AES-256-CBC under the 32 byte
// payment hash and returns base64 ciphertext and IV, the LUD-10 payload
// shape.
func encryptSecret(key, plaintext []byte) (string, string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", "", err
	}

	// PKCS7 padding.
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+pad)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(padded, padded)

	return base64.StdEncoding.EncodeToString(padded),
		base64.StdEncoding.EncodeToString(iv), nil
}
