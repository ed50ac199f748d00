package handler

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bankcards/card-service/internal/middleware"
)

// Routes builds the full router: public auth endpoints plus the
// JWT-protected card and admin API.
func (h *Handler) Routes(jwtSecret string, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// Public routes
	r.HandleFunc("/api/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST")

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(jwtSecret))
	api.HandleFunc("/user/cards", h.UserCards).Methods("GET")
	api.HandleFunc("/cards/{cardId}/block", h.BlockCard).Methods("POST")
	api.HandleFunc("/user/transfer", h.Transfer).Methods("POST")
	api.HandleFunc("/cards/{cardId}/balance", h.CardBalance).Methods("GET")

	// Admin routes; role checks are enforced again in the service layer.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/cards", h.CreateCard).Methods("POST")
	admin.HandleFunc("/cards", h.AllCards).Methods("GET")
	admin.HandleFunc("/cards/{cardId}/activate", h.ActivateCard).Methods("PUT")
	admin.HandleFunc("/cards/{cardId}/block", h.BlockCard).Methods("PUT")
	admin.HandleFunc("/cards/{cardId}", h.DeleteCard).Methods("DELETE")
	admin.HandleFunc("/users", h.CreateUser).Methods("POST")
	admin.HandleFunc("/users", h.Users).Methods("GET")
	admin.HandleFunc("/users/{userId}", h.DeleteUser).Methods("DELETE")
	admin.HandleFunc("/users/{userId}/password", h.UpdateUserPassword).Methods("PUT")
	admin.HandleFunc("/users/{userId}/role", h.UpdateUserRole).Methods("PUT")

	return r
}
