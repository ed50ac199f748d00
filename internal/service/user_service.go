package service

import (
	"context"
	"fmt"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/auth"
	"github.com/bankcards/card-service/internal/authz"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration, authentication and user administration.
type UserService struct {
	users     UserStore
	cards     CardStore
	cipher    *utils.Cipher
	jwtSecret string
	log       *logrus.Logger
}

// NewUserService initializes a new user service
func NewUserService(users UserStore, cards CardStore, cipher *utils.Cipher, jwtSecret string, log *logrus.Logger) *UserService {
	return &UserService{users: users, cards: cards, cipher: cipher, jwtSecret: jwtSecret, log: log}
}

// Register creates a new USER-role account and returns a JWT for it.
// Self-service registration can never assign ADMIN.
func (s *UserService) Register(ctx context.Context, username, password, email string) (string, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if exists {
		return "", apperrors.Conflict("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         models.RoleUser,
		Email:        email,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	s.log.Infof("User registered: %s", user.Username)
	return auth.GenerateToken(s.jwtSecret, user.Username, user.Role)
}

// Login authenticates a user and returns a JWT token. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", apperrors.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Unauthenticated("invalid credentials")
	}

	s.log.Infof("User logged in: %s", user.Username)
	return auth.GenerateToken(s.jwtSecret, user.Username, user.Role)
}

// CreateUser creates an account on behalf of an admin. Granting ADMIN
// requires the acting principal to be an admin themselves.
func (s *UserService) CreateUser(ctx context.Context, p models.Principal, username, password, email, role string) (*models.User, error) {
	if !authz.CanAdminister(p) {
		return nil, apperrors.Forbidden("admin role required")
	}
	if !models.ValidRole(role) {
		return nil, apperrors.InvalidInput("role must be USER or ADMIN")
	}
	if !authz.CanAssignRole(p, models.Role(role)) {
		return nil, apperrors.Forbidden("only an admin may assign the ADMIN role")
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         models.Role(role),
		Email:        email,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User created by %s: %s (%s)", p.Username, user.Username, user.Role)
	return user, nil
}

// DeleteUser removes a user and, via cascade, their cards. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, p models.Principal, userID int64) error {
	if !authz.CanAdminister(p) {
		return apperrors.Forbidden("admin role required")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Infof("User %d deleted by %s", userID, p.Username)
	return nil
}

// UpdatePassword resets a user's password. Admin only.
func (s *UserService) UpdatePassword(ctx context.Context, p models.Principal, userID int64, password string) error {
	if !authz.CanAdminister(p) {
		return apperrors.Forbidden("admin role required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hashed))
}

// UpdateRole changes a user's role. Admin only; the ADMIN grant rule applies.
func (s *UserService) UpdateRole(ctx context.Context, p models.Principal, userID int64, role string) error {
	if !authz.CanAdminister(p) {
		return apperrors.Forbidden("admin role required")
	}
	if !models.ValidRole(role) {
		return apperrors.InvalidInput("role must be USER or ADMIN")
	}
	if !authz.CanAssignRole(p, models.Role(role)) {
		return apperrors.Forbidden("only an admin may assign the ADMIN role")
	}
	return s.users.UpdateRole(ctx, userID, models.Role(role))
}

// ListUsers returns a page of users with their card projections embedded.
// Admin only. A card that fails to decrypt fails the whole listing rather
// than returning corrupted data.
func (s *UserService) ListUsers(ctx context.Context, p models.Principal, usernameFilter string, page, size int) (*models.UserPage, error) {
	if !authz.CanAdminister(p) {
		return nil, apperrors.Forbidden("admin role required")
	}
	page, size = normalizePage(page, size)

	users, total, err := s.users.List(ctx, usernameFilter, page, size)
	if err != nil {
		return nil, err
	}

	views := make([]models.UserView, 0, len(users))
	for _, user := range users {
		cards, err := s.cards.ListByOwner(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		cardViews := make([]models.CardView, 0, len(cards))
		for _, card := range cards {
			view, err := cardView(s.cipher, card)
			if err != nil {
				return nil, err
			}
			cardViews = append(cardViews, view)
		}
		views = append(views, models.UserView{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Cards:    cardViews,
		})
	}

	return &models.UserPage{Items: views, Page: page, Size: size, Total: total}, nil
}
