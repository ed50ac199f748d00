package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// brandPrefix is the fixed first digit of every issued card number.
	brandPrefix = "4"
	cardLength  = 16

	// maxGenerateAttempts bounds the uniqueness retry loop.
	maxGenerateAttempts = 1000
)

// ErrGenerationExhausted is returned when no unique card number could be
// produced within the attempt budget.
var ErrGenerationExhausted = errors.New("card number generation exhausted")

// ExistsFunc reports whether a card number is already taken.
type ExistsFunc func(number string) (bool, error)

// GenerateCardNumber produces a unique 16-digit card number: the brand
// prefix, 14 random digits and a Luhn check digit. exists is consulted for
// every candidate; after maxGenerateAttempts collisions the generator gives
// up with ErrGenerationExhausted.
func GenerateCardNumber(exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		number, err := randomCardNumber()
		if err != nil {
			return "", err
		}
		taken, err := exists(number)
		if err != nil {
			return "", fmt.Errorf("failed to check card number uniqueness: %w", err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrGenerationExhausted
}

func randomCardNumber() (string, error) {
	digits := make([]byte, cardLength-len(brandPrefix)-1)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(brandPrefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}
	prefix := builder.String()
	builder.WriteByte(byte(luhnCheckDigit(prefix)) + '0')
	return builder.String(), nil
}

// luhnCheckDigit computes the Luhn check digit for the 15-digit prefix:
// right to left, every second digit is doubled (minus 9 when above 9),
// the digits are summed and the complement mod 10 is the check digit.
func luhnCheckDigit(prefix string) int {
	sum := 0
	double := true
	for i := len(prefix) - 1; i >= 0; i-- {
		digit := int(prefix[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return (10 - sum%10) % 10
}

// LuhnValid reports whether the full number passes the Luhn checksum.
func LuhnValid(number string) bool {
	if number == "" {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return luhnCheckDigit(number[:len(number)-1]) == int(number[len(number)-1]-'0')
}

// MaskCardNumber renders the display-safe form of a plaintext card number,
// keeping only the last four digits.
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

// CardNumberHash produces a deterministic fingerprint of a plaintext card
// number for uniqueness checks. The encrypted form cannot be compared
// directly because every ciphertext carries a fresh IV.
func CardNumberHash(number, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(number))
	return hex.EncodeToString(h.Sum(nil))
}
