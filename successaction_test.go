package lnaddy

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"testing"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/require"
)

var testHash = lntypes.Hash{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
}

func TestRenderNoAction(t *testing.T) {
	cfg := &SuccessActionConfig{}

	action, err := cfg.Render(testHash)
	require.NoError(t, err)
	require.Nil(t, action)
}

func TestRenderMessageAction(t *testing.T) {
	cfg := &SuccessActionConfig{
		Tag:     ActionMessage,
		Message: "Payment received!",
	}

	action, err := cfg.Render(testHash)
	require.NoError(t, err)
	require.Equal(t, &SuccessAction{
		Tag:     ActionMessage,
		Message: "Payment received!",
	}, action)
}

func TestRenderURLAction(t *testing.T) {
	cfg := &SuccessActionConfig{
		Tag:     ActionURL,
		Message: "Your order",
		URL:     "https://shop.example.com/order/42",
	}

	action, err := cfg.Render(testHash)
	require.NoError(t, err)
	require.Equal(t, &SuccessAction{
		Tag:         ActionURL,
		Description: "Your order",
		URL:         "https://shop.example.com/order/42",
	}, action)
}

// TestRenderAESAction decrypts the rendered payload with the payment hash to
// verify the ciphertext round trips.
func TestRenderAESAction(t *testing.T) {
	cfg := &SuccessActionConfig{
		Tag:     ActionAES,
		Message: "Here is your voucher",
		Secret:  "VOUCHER-1234",
	}

	action, err := cfg.Render(testHash)
	require.NoError(t, err)
	require.Equal(t, ActionAES, action.Tag)
	require.Equal(t, "Here is your voucher", action.Description)

	ciphertext, err := base64.StdEncoding.DecodeString(action.Ciphertext)
	require.NoError(t, err)
	iv, err := base64.StdEncoding.DecodeString(action.IV)
	require.NoError(t, err)
	require.Len(t, iv, aes.BlockSize)

	block, err := aes.NewCipher(testHash[:])
	require.NoError(t, err)

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	pad := int(plain[len(plain)-1])
	require.Equal(t, "VOUCHER-1234", string(plain[:len(plain)-pad]))
}

func TestRenderUnknownAction(t *testing.T) {
	cfg := &SuccessActionConfig{Tag: "jackpot"}

	_, err := cfg.Render(testHash)
	require.Error(t, err)
}
