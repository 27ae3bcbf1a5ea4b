package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

type PostHandler struct {
	postService *services.PostService
	feedService *services.FeedService
}

func NewPostHandler(postService *services.PostService, feedService *services.FeedService) *PostHandler {
	return &PostHandler{
		postService: postService,
		feedService: feedService,
	}
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req post.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AuthorID = userID

	p, err := h.postService.CreatePost(ctx, &req)
	if err != nil {
		respondWithServiceError(w, "CreatePost", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	item, err := h.feedService.ViewPost(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "GetPost", err)
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

// interact runs fn on a post the caller is allowed to see and responds with
// the post as the caller now sees it.
func (h *PostHandler) interact(w http.ResponseWriter, r *http.Request, op string, code int,
	fn func(ctx context.Context, postID, userID string) error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	postID := mux.Vars(r)["id"]
	if _, err := h.feedService.ViewPost(ctx, userID, postID); err != nil {
		respondWithServiceError(w, op, err)
		return
	}
	if err := fn(ctx, postID, userID); err != nil {
		respondWithServiceError(w, op, err)
		return
	}

	item, err := h.feedService.ViewPost(ctx, userID, postID)
	if err != nil {
		respondWithServiceError(w, op, err)
		return
	}
	respondWithJSON(w, code, item)
}

func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, "LikePost", http.StatusOK, func(ctx context.Context, postID, userID string) error {
		_, err := h.postService.LikePost(ctx, postID, userID)
		return err
	})
}

func (h *PostHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, "UnlikePost", http.StatusOK, func(ctx context.Context, postID, userID string) error {
		_, err := h.postService.UnlikePost(ctx, postID, userID)
		return err
	})
}

func (h *PostHandler) SharePost(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, "SharePost", http.StatusOK, func(ctx context.Context, postID, userID string) error {
		_, err := h.postService.SharePost(ctx, postID, userID)
		return err
	})
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req post.AddCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.interact(w, r, "AddComment", http.StatusCreated, func(ctx context.Context, postID, userID string) error {
		_, err := h.postService.AddComment(ctx, postID, userID, req.Text)
		return err
	})
}
