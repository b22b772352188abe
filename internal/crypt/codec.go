// Package crypt seals message bodies before they reach the database.
//
// The sealed blob is hex(iv) + ":" + hex(ciphertext) with AES-256-CBC
// and PKCS#7 padding, so a blob is self-contained and the store never
// sees plaintext. Open is deliberately best-effort: anything that does
// not parse as a sealed blob is returned unchanged, which keeps rows
// written before encryption was introduced readable. The trade-off is
// that genuine corruption surfaces as garbage text instead of an error.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Codec encrypts and decrypts message bodies with a fixed symmetric key.
type Codec struct {
	key []byte
}

// New builds a Codec. The key must be exactly 32 bytes (AES-256).
func New(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cipher key must be 32 bytes, got %d", len(key))
	}
	c := &Codec{key: make([]byte, 32)}
	copy(c.key, key)
	return c, nil
}

// Seal encrypts plaintext under a fresh random IV.
func (c *Codec) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Open decrypts a sealed blob. Malformed or truncated input is returned
// unchanged rather than reported as an error; see the package comment.
func (c *Codec) Open(blob string) string {
	parts := strings.SplitN(blob, ":", 2)
	if len(parts) != 2 {
		return blob
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return blob
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return blob
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return blob
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	unpadded, ok := unpad(plain)
	if !ok {
		return blob
	}
	return string(unpadded)
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, false
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
