// Package handler maps HTTP requests onto the service layer and error
// kinds onto HTTP statuses.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/middleware"
	"github.com/bankcards/card-service/internal/models"
	"github.com/bankcards/card-service/internal/service"
)

type Handler struct {
	users    *service.UserService
	cards    *service.CardService
	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(users *service.UserService, cards *service.CardService, log *logrus.Logger) *Handler {
	return &Handler{
		users:    users,
		cards:    cards,
		validate: validator.New(),
		log:      log,
	}
}

// decode unmarshals and validates a request body.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthenticated("authentication required"))
		return models.Principal{}, false
	}
	return p, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.log.Errorf("Failed to encode response: %v", err)
		}
	}
}

// writeError translates an error kind into an HTTP status. Crypto and
// internal failures are reported generically so no detail leaks out.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	msg := err.Error()
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperrors.KindInvalidInput:
		status = http.StatusBadRequest
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindInsufficientFunds:
		status = http.StatusBadRequest
	default:
		h.log.Errorf("Internal error: %v", err)
		status = http.StatusInternalServerError
		msg = "internal server error"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.InvalidInput("invalid " + name)
	}
	return id, nil
}

// pageParams reads page/size query parameters with defaults.
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = 10
	}
	return page, size
}
