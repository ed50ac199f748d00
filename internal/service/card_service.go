package service

import (
	"context"
	"strings"
	"time"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/authz"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/money"
	"github.com/bankcards/card-service/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CardService is the card lifecycle and transfer engine.
type CardService struct {
	cards      CardStore
	users      UserStore
	cipher     *utils.Cipher
	hmacSecret string
	notifier   Notifier
	log        *logrus.Logger
}

// NewCardService initializes a new card service
func NewCardService(cards CardStore, users UserStore, cipher *utils.Cipher, hmacSecret string, notifier Notifier, log *logrus.Logger) *CardService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CardService{cards: cards, users: users, cipher: cipher, hmacSecret: hmacSecret, notifier: notifier, log: log}
}

// CreateCard issues a new ACTIVE card for the named owner. Admin only.
func (s *CardService) CreateCard(ctx context.Context, p models.Principal, ownerUsername string, expiryDate time.Time, initialBalance money.Amount) (*models.CardView, error) {
	if !authz.CanAdminister(p) {
		return nil, apperrors.Forbidden("admin role required")
	}
	if initialBalance < 0 {
		return nil, apperrors.InvalidInput("initial balance must be non-negative")
	}
	if !expiryDate.After(time.Now()) {
		return nil, apperrors.InvalidInput("expiry date must be in the future")
	}

	owner, err := s.users.FindByUsername(ctx, ownerUsername)
	if err != nil {
		return nil, err
	}

	number, err := utils.GenerateCardNumber(func(candidate string) (bool, error) {
		return s.cards.ExistsByNumberHash(ctx, utils.CardNumberHash(candidate, s.hmacSecret))
	})
	if err == utils.ErrGenerationExhausted {
		return nil, apperrors.Conflict("could not generate a unique card number")
	}
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(number)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		NumberEncrypted: encrypted,
		NumberHash:      utils.CardNumberHash(number, s.hmacSecret),
		OwnerID:         owner.ID,
		OwnerUsername:   owner.Username,
		ExpiryDate:      expiryDate,
		Status:          models.StatusActive,
		Balance:         initialBalance,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Card %d created for user %s", card.ID, owner.Username)
	view := models.CardView{
		ID:            card.ID,
		MaskedNumber:  utils.MaskCardNumber(number),
		OwnerUsername: owner.Username,
		ExpiryDate:    card.ExpiryDate.Format("2006-01-02"),
		Status:        card.Status,
		Balance:       card.Balance,
	}
	return &view, nil
}

// BlockCard sets a card's status to BLOCKED. Allowed for the owner or an
// admin.
func (s *CardService) BlockCard(ctx context.Context, p models.Principal, cardID int64) error {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if !authz.CanBlockCard(p, card.OwnerUsername) {
		return apperrors.Forbidden("not allowed to block this card")
	}
	if err := s.cards.UpdateStatus(ctx, cardID, models.StatusBlocked); err != nil {
		return err
	}
	s.log.Infof("Card %d blocked by %s", cardID, p.Username)
	s.notifyCardBlocked(ctx, card)
	return nil
}

// ActivateCard sets a card's status back to ACTIVE. Admin only.
func (s *CardService) ActivateCard(ctx context.Context, p models.Principal, cardID int64) error {
	if !authz.CanAdminister(p) {
		return apperrors.Forbidden("admin role required")
	}
	if _, err := s.cards.FindByID(ctx, cardID); err != nil {
		return err
	}
	if err := s.cards.UpdateStatus(ctx, cardID, models.StatusActive); err != nil {
		return err
	}
	s.log.Infof("Card %d activated by %s", cardID, p.Username)
	return nil
}

// DeleteCard removes a card permanently. Admin only.
func (s *CardService) DeleteCard(ctx context.Context, p models.Principal, cardID int64) error {
	if !authz.CanAdminister(p) {
		return apperrors.Forbidden("admin role required")
	}
	if _, err := s.cards.FindByID(ctx, cardID); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, cardID); err != nil {
		return err
	}
	s.log.Infof("Card %d deleted by %s", cardID, p.Username)
	return nil
}

// Transfer moves amount between two cards owned by the principal. All
// checks run before any mutation; the balance updates themselves are atomic
// in the store.
func (s *CardService) Transfer(ctx context.Context, p models.Principal, fromID, toID int64, amount money.Amount) error {
	if amount <= 0 {
		return apperrors.InvalidInput("transfer amount must be positive")
	}
	if fromID == toID {
		return apperrors.InvalidInput("cannot transfer to the same card")
	}

	fromCard, err := s.cards.FindByID(ctx, fromID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return apperrors.NotFound("source card not found")
		}
		return err
	}
	toCard, err := s.cards.FindByID(ctx, toID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return apperrors.NotFound("destination card not found")
		}
		return err
	}

	if !authz.CanUseCard(p, fromCard.OwnerUsername) || !authz.CanUseCard(p, toCard.OwnerUsername) {
		return apperrors.Forbidden("principal must own both cards")
	}
	if fromCard.Balance < amount {
		return apperrors.InsufficientFunds("insufficient funds")
	}

	if err := s.cards.Transfer(ctx, fromID, toID, amount); err != nil {
		return err
	}

	s.log.Infof("Transferred %s from card %d to card %d", amount, fromID, toID)
	s.notifyTransfer(ctx, fromCard, toCard, amount)
	return nil
}

// GetBalance returns a card's balance to its owner. Intentionally no admin
// override; admins see balances through the all-cards listing instead.
func (s *CardService) GetBalance(ctx context.Context, p models.Principal, cardID int64) (money.Amount, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return 0, err
	}
	if !authz.CanUseCard(p, card.OwnerUsername) {
		return 0, apperrors.Forbidden("not the card owner")
	}
	return card.Balance, nil
}

// ListUserCards returns a page of the principal's cards, optionally filtered
// by a substring of the plaintext number. Ciphertext is IV-randomized, so
// the filter runs in decrypted space and pagination is applied afterwards.
func (s *CardService) ListUserCards(ctx context.Context, p models.Principal, search string, page, size int) (*models.CardPage, error) {
	user, err := s.users.FindByUsername(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	page, size = normalizePage(page, size)

	cards, err := s.cards.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]models.CardView, 0, len(cards))
	for _, card := range cards {
		number, err := s.cipher.Decrypt(card.NumberEncrypted)
		if err != nil {
			return nil, err
		}
		if search != "" && !strings.Contains(number, search) {
			continue
		}
		views = append(views, models.CardView{
			ID:            card.ID,
			MaskedNumber:  utils.MaskCardNumber(number),
			OwnerUsername: card.OwnerUsername,
			ExpiryDate:    card.ExpiryDate.Format("2006-01-02"),
			Status:        card.Status,
			Balance:       card.Balance,
		})
	}

	total := int64(len(views))
	start := (page - 1) * size
	if start > len(views) {
		start = len(views)
	}
	end := start + size
	if end > len(views) {
		end = len(views)
	}

	return &models.CardPage{Items: views[start:end], Page: page, Size: size, Total: total}, nil
}

// ListAllCards returns a page of every card in the system. Admin only.
func (s *CardService) ListAllCards(ctx context.Context, p models.Principal, page, size int) (*models.CardPage, error) {
	if !authz.CanAdminister(p) {
		return nil, apperrors.Forbidden("admin role required")
	}
	page, size = normalizePage(page, size)

	cards, total, err := s.cards.ListAll(ctx, page, size)
	if err != nil {
		return nil, err
	}

	views := make([]models.CardView, 0, len(cards))
	for _, card := range cards {
		view, err := cardView(s.cipher, card)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return &models.CardPage{Items: views, Page: page, Size: size, Total: total}, nil
}

// ExpireCards transitions every ACTIVE card past its expiry date to EXPIRED.
// Invoked by the scheduler, not by request handlers.
func (s *CardService) ExpireCards(ctx context.Context) (int64, error) {
	return s.cards.ExpireCards(ctx, time.Now())
}

func (s *CardService) notifyCardBlocked(ctx context.Context, card *models.Card) {
	owner, err := s.users.FindByUsername(ctx, card.OwnerUsername)
	if err != nil || owner.Email == "" {
		return
	}
	number, err := s.cipher.Decrypt(card.NumberEncrypted)
	if err != nil {
		s.log.Errorf("Failed to decrypt card %d for notification: %v", card.ID, err)
		return
	}
	s.notifier.CardBlocked(owner.Email, owner.Username, utils.MaskCardNumber(number))
}

func (s *CardService) notifyTransfer(ctx context.Context, fromCard, toCard *models.Card, amount money.Amount) {
	owner, err := s.users.FindByUsername(ctx, fromCard.OwnerUsername)
	if err != nil || owner.Email == "" {
		return
	}
	fromNumber, err := s.cipher.Decrypt(fromCard.NumberEncrypted)
	if err != nil {
		return
	}
	toNumber, err := s.cipher.Decrypt(toCard.NumberEncrypted)
	if err != nil {
		return
	}
	s.notifier.TransferCompleted(owner.Email, owner.Username, amount,
		utils.MaskCardNumber(fromNumber), utils.MaskCardNumber(toNumber))
}

// cardView decrypts a stored card into its display projection.
func cardView(cipher *utils.Cipher, card models.Card) (models.CardView, error) {
	number, err := cipher.Decrypt(card.NumberEncrypted)
	if err != nil {
		return models.CardView{}, err
	}
	return models.CardView{
		ID:            card.ID,
		MaskedNumber:  utils.MaskCardNumber(number),
		OwnerUsername: card.OwnerUsername,
		ExpiryDate:    card.ExpiryDate.Format("2006-01-02"),
		Status:        card.Status,
		Balance:       card.Balance,
	}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
