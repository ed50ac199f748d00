package models

import "github.com/bankcards/card-service/internal/money"

// CardView is the display projection of a card. The number appears only in
// masked form.
type CardView struct {
	ID            int64        `json:"id"`
	MaskedNumber  string       `json:"masked_card_number"`
	OwnerUsername string       `json:"owner_username"`
	ExpiryDate    string       `json:"expiry_date"` // YYYY-MM-DD
	Status        CardStatus   `json:"status"`
	Balance       money.Amount `json:"balance"`
}

// UserView is the display projection of a user with their cards embedded.
type UserView struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Role     Role       `json:"role"`
	Cards    []CardView `json:"cards"`
}

// CardPage is a paginated card listing.
type CardPage struct {
	Items []CardView `json:"items"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Total int64      `json:"total"`
}

// UserPage is a paginated user listing.
type UserPage struct {
	Items []UserView `json:"items"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Total int64      `json:"total"`
}
