package handlers

import (
	"context"
	"net/http"

	"dailyDuoAPI/internal/types/user"
	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Register(ctx, &req)
	if err != nil {
		respondWithServiceError(w, "Register", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Login(ctx, &req)
	if err != nil {
		respondWithServiceError(w, "Login", err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	token, ok := middleware.GetToken(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.authService.Logout(ctx, token); err != nil {
		respondWithServiceError(w, "Logout", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
