package models

import (
	"time"

	"github.com/bankcards/card-service/internal/money"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	StatusActive  CardStatus = "ACTIVE"
	StatusBlocked CardStatus = "BLOCKED"
	StatusExpired CardStatus = "EXPIRED"
)

// Card represents a bank card
type Card struct {
	ID              int64        `json:"id"`
	NumberEncrypted string       `json:"-"` // AES ciphertext, never serialized
	NumberHash      string       `json:"-"` // deterministic fingerprint for uniqueness
	OwnerID         int64        `json:"owner_id"`
	OwnerUsername   string       `json:"owner_username"`
	ExpiryDate      time.Time    `json:"expiry_date"`
	Status          CardStatus   `json:"status"`
	Balance         money.Amount `json:"balance"`
}
