package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bankcards/card-service/internal/apperrors"
)

// Distinct decrypt failure causes. All are surfaced to callers wrapped in a
// CryptoFailure so cipher internals never cross the transport boundary, but
// tests and logs can tell them apart with errors.Is.
var (
	ErrBadBase64    = errors.New("malformed base64 input")
	ErrBadBlockSize = errors.New("ciphertext is not a multiple of the block size")
	ErrBadPadding   = errors.New("invalid padding")
	ErrBadKey       = errors.New("invalid encryption key")
)

// Cipher encrypts card numbers at rest with AES-CBC and PKCS#7 padding.
// Each call uses a fresh random IV; the output is base64(IV || ciphertext).
// The key is fixed at startup, so a Cipher is safe for concurrent use.
type Cipher struct {
	key []byte
}

// NewCipher validates the key length (AES-128/192/256) and returns a Cipher.
func NewCipher(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, apperrors.CryptoFailure(
			fmt.Sprintf("encryption key must be 16, 24, or 32 bytes, got %d", len(key)), ErrBadKey)
	}
	return &Cipher{key: key}, nil
}

// Encrypt encrypts a 16-character plaintext card number.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if len(plaintext) != cardLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("card number must be %d characters", cardLength))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", apperrors.CryptoFailure("failed to create cipher", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", apperrors.CryptoFailure("failed to generate IV", err)
	}

	// PKCS#5/PKCS#7 padding
	data := []byte(plaintext)
	padding := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt reverses Encrypt: base64-decode, split off the IV, decrypt and
// strip padding. Each failure mode carries its own cause.
func (c *Cipher) Decrypt(blob string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", apperrors.CryptoFailure("failed to decode card number", ErrBadBase64)
	}

	if len(data) < aes.BlockSize {
		return "", apperrors.CryptoFailure("encrypted card number too short", ErrBadBlockSize)
	}
	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", apperrors.CryptoFailure("invalid ciphertext length", ErrBadBlockSize)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", apperrors.CryptoFailure("failed to create cipher", ErrBadKey)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(plaintext) {
		return "", apperrors.CryptoFailure("failed to decrypt card number", ErrBadPadding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", apperrors.CryptoFailure("failed to decrypt card number", ErrBadPadding)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
