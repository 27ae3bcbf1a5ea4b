package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

type FeedHandler struct {
	feedService *services.FeedService
	now         func() time.Time
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		now:         time.Now,
	}
}

func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	feed, err := h.feedService.GetFriendsFeed(ctx, userID, h.now())
	if err != nil {
		respondWithServiceError(w, "GetFeed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, feed)
}

func (h *FeedHandler) GetMemories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	memories, err := h.feedService.GetMemories(ctx, userID, h.now())
	if err != nil {
		respondWithServiceError(w, "GetMemories", err)
		return
	}

	respondWithJSON(w, http.StatusOK, memories)
}

// GetMemoriesCalendar takes optional year and month query parameters and
// defaults to the current month of the configured calendar zone.
func (h *FeedHandler) GetMemoriesCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := h.now()
	today := h.feedService.Today(now)
	year, month := today.Year, int(today.Month)
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = parsed
	}
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid month")
			return
		}
		month = parsed
	}

	cal, err := h.feedService.GetMemoriesCalendar(ctx, userID, year, time.Month(month), now)
	if err != nil {
		respondWithServiceError(w, "GetMemoriesCalendar", err)
		return
	}

	respondWithJSON(w, http.StatusOK, cal)
}

func (h *FeedHandler) GetCaptureStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	status, err := h.feedService.CaptureStatus(ctx, userID, h.now())
	if err != nil {
		respondWithServiceError(w, "GetCaptureStatus", err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
