package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/money"
	"github.com/bankcards/card-service/internal/utils"
)

const testHMACSecret = "test-hmac-secret"

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testCipher(t *testing.T) *utils.Cipher {
	t.Helper()
	c, err := utils.NewCipher([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCipher returned error: %v", err)
	}
	return c
}

type mockUserStore struct {
	CreateFunc           func(ctx context.Context, user *models.User) error
	FindByUsernameFunc   func(ctx context.Context, username string) (*models.User, error)
	FindByIDFunc         func(ctx context.Context, id int64) (*models.User, error)
	ExistsByUsernameFunc func(ctx context.Context, username string) (bool, error)
	DeleteFunc           func(ctx context.Context, id int64) error
	UpdatePasswordFunc   func(ctx context.Context, id int64, passwordHash string) error
	UpdateRoleFunc       func(ctx context.Context, id int64, role models.Role) error
	ListFunc             func(ctx context.Context, usernameFilter string, page, size int) ([]models.User, int64, error)
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	return m.CreateFunc(ctx, user)
}
func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.FindByUsernameFunc(ctx, username)
}
func (m *mockUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return m.FindByIDFunc(ctx, id)
}
func (m *mockUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.ExistsByUsernameFunc(ctx, username)
}
func (m *mockUserStore) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}
func (m *mockUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.UpdatePasswordFunc(ctx, id, passwordHash)
}
func (m *mockUserStore) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	return m.UpdateRoleFunc(ctx, id, role)
}
func (m *mockUserStore) List(ctx context.Context, usernameFilter string, page, size int) ([]models.User, int64, error) {
	return m.ListFunc(ctx, usernameFilter, page, size)
}

type mockCardStore struct {
	CreateFunc             func(ctx context.Context, card *models.Card) error
	FindByIDFunc           func(ctx context.Context, id int64) (*models.Card, error)
	ExistsByNumberHashFunc func(ctx context.Context, numberHash string) (bool, error)
	UpdateStatusFunc       func(ctx context.Context, id int64, status models.CardStatus) error
	DeleteFunc             func(ctx context.Context, id int64) error
	ListByOwnerFunc        func(ctx context.Context, ownerID int64) ([]models.Card, error)
	ListAllFunc            func(ctx context.Context, page, size int) ([]models.Card, int64, error)
	TransferFunc           func(ctx context.Context, fromID, toID int64, amount money.Amount) error
	ExpireCardsFunc        func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockCardStore) Create(ctx context.Context, card *models.Card) error {
	return m.CreateFunc(ctx, card)
}
func (m *mockCardStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	return m.FindByIDFunc(ctx, id)
}
func (m *mockCardStore) ExistsByNumberHash(ctx context.Context, numberHash string) (bool, error) {
	return m.ExistsByNumberHashFunc(ctx, numberHash)
}
func (m *mockCardStore) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	return m.UpdateStatusFunc(ctx, id, status)
}
func (m *mockCardStore) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}
func (m *mockCardStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.Card, error) {
	return m.ListByOwnerFunc(ctx, ownerID)
}
func (m *mockCardStore) ListAll(ctx context.Context, page, size int) ([]models.Card, int64, error) {
	return m.ListAllFunc(ctx, page, size)
}
func (m *mockCardStore) Transfer(ctx context.Context, fromID, toID int64, amount money.Amount) error {
	return m.TransferFunc(ctx, fromID, toID, amount)
}
func (m *mockCardStore) ExpireCards(ctx context.Context, now time.Time) (int64, error) {
	return m.ExpireCardsFunc(ctx, now)
}

// fakeCardStore is an in-memory store whose Transfer is atomic under a
// mutex, mirroring the database transaction. Used for the concurrent
// transfer tests.
type fakeCardStore struct {
	mockCardStore // panics on anything not overridden below

	mu    sync.Mutex
	cards map[int64]*models.Card
}

func newFakeCardStore(cards ...*models.Card) *fakeCardStore {
	s := &fakeCardStore{cards: make(map[int64]*models.Card)}
	for _, c := range cards {
		s.cards[c.ID] = c
	}
	return s
}

func (s *fakeCardStore) FindByID(_ context.Context, id int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, apperrors.NotFound("card not found")
	}
	copied := *card
	return &copied, nil
}

func (s *fakeCardStore) Transfer(_ context.Context, fromID, toID int64, amount money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.cards[fromID]
	if !ok {
		return apperrors.NotFound("source card not found")
	}
	to, ok := s.cards[toID]
	if !ok {
		return apperrors.NotFound("destination card not found")
	}
	if from.Balance < amount {
		return apperrors.InsufficientFunds("insufficient funds")
	}
	from.Balance -= amount
	to.Balance += amount
	return nil
}

func (s *fakeCardStore) balance(id int64) money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards[id].Balance
}
