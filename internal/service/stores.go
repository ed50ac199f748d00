// Package service implements the business logic of the card service: user
// registration and administration, card lifecycle, and balance transfers.
// Persistence is delegated to store interfaces so the engine can be tested
// without a database.
package service

import (
	"context"
	"time"

	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/money"
)

// UserStore defines the persistence operations required for users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	List(ctx context.Context, usernameFilter string, page, size int) ([]models.User, int64, error)
}

// CardStore defines the persistence operations required for cards.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id int64) (*models.Card, error)
	ExistsByNumberHash(ctx context.Context, numberHash string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Card, error)
	ListAll(ctx context.Context, page, size int) ([]models.Card, int64, error)
	// Transfer must re-check the source balance and apply both updates as a
	// single atomic unit.
	Transfer(ctx context.Context, fromID, toID int64, amount money.Amount) error
	ExpireCards(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers out-of-band notices to card owners. Implementations
// must not fail the triggering operation.
type Notifier interface {
	CardBlocked(email, username, maskedNumber string)
	TransferCompleted(email, username string, amount money.Amount, fromMasked, toMasked string)
}

// NopNotifier is used when no SMTP transport is configured.
type NopNotifier struct{}

func (NopNotifier) CardBlocked(_, _, _ string) {}

func (NopNotifier) TransferCompleted(_, _ string, _ money.Amount, _, _ string) {}
