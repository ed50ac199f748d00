package handler

import (
	"net/http"
	"time"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/money"
)

type cardCreateRequest struct {
	OwnerUsername  string       `json:"owner_username" validate:"required,min=3,max=50"`
	ExpiryDate     string       `json:"expiry_date" validate:"required"`
	InitialBalance money.Amount `json:"initial_balance"`
}

type userCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required"`
}

type passwordUpdateRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type roleUpdateRequest struct {
	Role string `json:"role" validate:"required"`
}

// CreateCard issues a new card for a user
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req cardCreateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("expiry_date must be YYYY-MM-DD"))
		return
	}

	card, err := h.cards.CreateCard(r.Context(), p, req.OwnerUsername, expiry, req.InitialBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, card)
}

// ActivateCard re-activates a blocked card
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.cards.ActivateCard(r.Context(), p, cardID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// DeleteCard removes a card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.cards.DeleteCard(r.Context(), p, cardID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// AllCards lists every card in the system
func (h *Handler) AllCards(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	page, size := pageParams(r)

	result, err := h.cards.ListAllCards(r.Context(), p, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// CreateUser creates a user account with an explicit role
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req userCreateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), p, req.Username, req.Password, req.Email, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user and their cards
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.users.DeleteUser(r.Context(), p, userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// UpdateUserPassword resets a user's password
func (h *Handler) UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req passwordUpdateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.users.UpdatePassword(r.Context(), p, userID, req.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// UpdateUserRole changes a user's role
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req roleUpdateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.users.UpdateRole(r.Context(), p, userID, req.Role); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// Users lists users with their cards, optionally filtered by username
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	page, size := pageParams(r)

	result, err := h.users.ListUsers(r.Context(), p, r.URL.Query().Get("username"), page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
