package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"dailyDuoAPI/internal/types/user"
	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		respondWithServiceError(w, "GetProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.UpdateUser(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, "UpdateProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := h.userService.GetByID(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "GetUser", err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	users, err := h.userService.SearchUsers(ctx, query)
	if err != nil {
		respondWithServiceError(w, "SearchUsers", err)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}
