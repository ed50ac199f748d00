package handler

import (
	"net/http"

	"github.com/bankcards/card-service/internal/money"
)

type transferRequest struct {
	FromCardID int64        `json:"from_card_id" validate:"required,min=1"`
	ToCardID   int64        `json:"to_card_id" validate:"required,min=1"`
	Amount     money.Amount `json:"amount" validate:"required"`
}

type balanceResponse struct {
	Balance money.Amount `json:"balance"`
}

// UserCards lists the authenticated user's cards, optionally filtered by a
// substring of the card number.
func (h *Handler) UserCards(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	page, size := pageParams(r)

	result, err := h.cards.ListUserCards(r.Context(), p, r.URL.Query().Get("search"), page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// BlockCard handles a block request for a single card
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.cards.BlockCard(r.Context(), p, cardID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// Transfer moves funds between two of the user's cards
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.cards.Transfer(r.Context(), p, req.FromCardID, req.ToCardID, req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// CardBalance returns the balance of one of the user's cards
func (h *Handler) CardBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	balance, err := h.cards.GetBalance(r.Context(), p, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}
