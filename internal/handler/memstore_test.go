package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/money"
)

// memUserStore and memCardStore are in-memory store implementations backing
// the end-to-end handler tests.
type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: make(map[int64]*models.User)}
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return apperrors.Conflict("username already taken")
		}
	}
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (s *memUserStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *memUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperrors.NotFound("user not found")
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *memUserStore) UpdateRole(_ context.Context, id int64, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.Role = role
	return nil
}

func (s *memUserStore) List(_ context.Context, usernameFilter string, page, size int) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.User
	for _, u := range s.users {
		if usernameFilter != "" && !strings.Contains(u.Username, usernameFilter) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type memCardStore struct {
	mu     sync.Mutex
	nextID int64
	cards  map[int64]*models.Card
}

func newMemCardStore() *memCardStore {
	return &memCardStore{nextID: 1, cards: make(map[int64]*models.Card)}
}

func (s *memCardStore) Create(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card.ID = s.nextID
	s.nextID++
	copied := *card
	s.cards[card.ID] = &copied
	return nil
}

func (s *memCardStore) FindByID(_ context.Context, id int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, apperrors.NotFound("card not found")
	}
	copied := *c
	return &copied, nil
}

func (s *memCardStore) ExistsByNumberHash(_ context.Context, numberHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.NumberHash == numberHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *memCardStore) UpdateStatus(_ context.Context, id int64, status models.CardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return apperrors.NotFound("card not found")
	}
	c.Status = status
	return nil
}

func (s *memCardStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return apperrors.NotFound("card not found")
	}
	delete(s.cards, id)
	return nil
}

func (s *memCardStore) ListByOwner(_ context.Context, ownerID int64) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Card
	for _, c := range s.cards {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCardStore) ListAll(_ context.Context, page, size int) ([]models.Card, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Card
	for _, c := range s.cards {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memCardStore) Transfer(_ context.Context, fromID, toID int64, amount money.Amount) error {
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

func (s *memCardStore) ExpireCards(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.cards {
		if c.Status == models.StatusActive && c.ExpiryDate.Before(now) {
			c.Status = models.StatusExpired
			count++
		}
	}
	return count, nil
}
