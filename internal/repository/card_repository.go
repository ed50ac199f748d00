package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/money"
)

// CardRepository provides database operations on cards
type CardRepository struct {
	db *sql.DB
}

// NewCardRepository initializes a new card repository
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create inserts a new card and fills in the generated id.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (number_encrypted, number_hash, owner_id, expiry_date, status, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		card.NumberEncrypted, card.NumberHash, card.OwnerID, card.ExpiryDate, card.Status, card.Balance.Minor()).
		Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindByID retrieves a card by id, joined with its owner's username.
func (r *CardRepository) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	card := &models.Card{}
	var balance int64
	query := `
		SELECT c.id, c.number_encrypted, c.number_hash, c.owner_id, u.username, c.expiry_date, c.status, c.balance
		FROM cards c
		JOIN users u ON u.id = c.owner_id
		WHERE c.id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&card.ID, &card.NumberEncrypted, &card.NumberHash, &card.OwnerID, &card.OwnerUsername,
			&card.ExpiryDate, &card.Status, &balance)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	card.Balance = money.FromMinor(balance)
	return card, nil
}

// ExistsByNumberHash checks whether a card with the given number
// fingerprint already exists.
func (r *CardRepository) ExistsByNumberHash(ctx context.Context, numberHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE number_hash = $1)`, numberHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check card number: %w", err)
	}
	return exists, nil
}

// UpdateStatus sets the card status.
func (r *CardRepository) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update card status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card status: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("card not found")
	}
	return nil
}

// Delete removes a card row.
func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("card not found")
	}
	return nil
}

// ListByOwner returns all cards owned by a user. Number filtering happens in
// decrypted space in the service layer, so no LIMIT is applied here.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.Card, error) {
	query := `
		SELECT c.id, c.number_encrypted, c.number_hash, c.owner_id, u.username, c.expiry_date, c.status, c.balance
		FROM cards c
		JOIN users u ON u.id = c.owner_id
		WHERE c.owner_id = $1
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

// ListAll returns a page of all cards with the total count.
func (r *CardRepository) ListAll(ctx context.Context, page, size int) ([]models.Card, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	query := `
		SELECT c.id, c.number_encrypted, c.number_hash, c.owner_id, u.username, c.expiry_date, c.status, c.balance
		FROM cards c
		JOIN users u ON u.id = c.owner_id
		ORDER BY c.id
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// Transfer atomically moves amount from one card to another. Both rows are
// locked in ascending id order to avoid deadlocks between opposite-direction
// transfers, the source balance is re-checked under the lock, and both
// updates commit together or not at all.
func (r *CardRepository) Transfer(ctx context.Context, fromID, toID int64, amount money.Amount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback()

	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	balances := make(map[int64]int64, 2)
	rows, err := tx.QueryContext(ctx,
		`SELECT id, balance FROM cards WHERE id = $1 OR id = $2 ORDER BY id FOR UPDATE`,
		firstID, secondID)
	if err != nil {
		return fmt.Errorf("failed to lock cards: %w", err)
	}
	for rows.Next() {
		var id, balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan card: %w", err)
		}
		balances[id] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock cards: %w", err)
	}

	fromBalance, ok := balances[fromID]
	if !ok {
		return apperrors.NotFound("source card not found")
	}
	if _, ok := balances[toID]; !ok {
		return apperrors.NotFound("destination card not found")
	}
	if fromBalance < amount.Minor() {
		return apperrors.InsufficientFunds("insufficient funds")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET balance = balance - $1 WHERE id = $2`, amount.Minor(), fromID); err != nil {
		return fmt.Errorf("failed to debit source card: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET balance = balance + $1 WHERE id = $2`, amount.Minor(), toID); err != nil {
		return fmt.Errorf("failed to credit destination card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// ExpireCards flips every ACTIVE card whose expiry date has passed to
// EXPIRED and reports how many rows changed.
func (r *CardRepository) ExpireCards(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET status = $1 WHERE status = $2 AND expiry_date < $3`,
		models.StatusExpired, models.StatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire cards: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to expire cards: %w", err)
	}
	return affected, nil
}

func scanCards(rows *sql.Rows) ([]models.Card, error) {
	var cards []models.Card
	for rows.Next() {
		var card models.Card
		var balance int64
		if err := rows.Scan(&card.ID, &card.NumberEncrypted, &card.NumberHash, &card.OwnerID,
			&card.OwnerUsername, &card.ExpiryDate, &card.Status, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		card.Balance = money.FromMinor(balance)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards, nil
}
