package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

func (h *FriendHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.friendService.ListFriends(ctx, userID)
	if err != nil {
		respondWithServiceError(w, "GetFriends", err)
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

// RemoveFriend unfriends the user whose id is in the path.
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	edge, err := h.friendService.FindAccepted(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "RemoveFriend", err)
		return
	}
	if err := h.friendService.RemoveFriend(ctx, edge.ID); err != nil {
		respondWithServiceError(w, "RemoveFriend", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Friend removed"})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req friendship.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		f   *friendship.Friendship
		err error
	)
	switch {
	case req.RecipientID != "":
		f, err = h.friendService.SendRequest(ctx, userID, req.RecipientID)
	case req.Username != "":
		f, err = h.friendService.SendRequestByUsername(ctx, userID, req.Username)
	default:
		respondWithError(w, http.StatusBadRequest, "recipientId or username is required")
		return
	}
	if err != nil {
		respondWithServiceError(w, "SendRequest", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, f)
}

func (h *FriendHandler) listRequests(w http.ResponseWriter, r *http.Request, op string,
	list func(ctx context.Context, userID string) ([]*friendship.Friendship, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	edges, err := list(ctx, userID)
	if err != nil {
		respondWithServiceError(w, op, err)
		return
	}
	described, err := h.friendService.WithOtherParty(ctx, userID, edges)
	if err != nil {
		respondWithServiceError(w, op, err)
		return
	}

	respondWithJSON(w, http.StatusOK, described)
}

func (h *FriendHandler) GetIncomingRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, "GetIncomingRequests", h.friendService.ListPendingIncoming)
}

func (h *FriendHandler) GetSentRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, "GetSentRequests", h.friendService.ListPendingOutgoing)
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	f, err := h.friendService.AcceptRequest(ctx, mux.Vars(r)["id"], userID)
	if err != nil {
		respondWithServiceError(w, "AcceptRequest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, f)
}

// RejectRequest declines an incoming request or cancels an outgoing one.
func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requestID := mux.Vars(r)["id"]
	f, err := h.friendService.GetRequest(ctx, requestID)
	if err != nil {
		respondWithServiceError(w, "RejectRequest", err)
		return
	}
	if !f.Involves(userID) {
		respondWithError(w, http.StatusForbidden, "Not your friend request")
		return
	}

	if err := h.friendService.RejectRequest(ctx, requestID); err != nil {
		respondWithServiceError(w, "RejectRequest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Friend request removed"})
}
