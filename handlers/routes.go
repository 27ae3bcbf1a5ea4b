package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups the API handlers so the server and the tests mount the same
// /api/v1 surface.
type Routes struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Friends *FriendHandler
	Posts   *PostHandler
	Feed    *FeedHandler
}

// Register mounts every route on api. Everything except register and login
// goes through requireAuth.
func (rt *Routes) Register(api *mux.Router, requireAuth func(http.Handler) http.Handler) {
	api.HandleFunc("/auth/register", rt.Auth.Register).Methods("POST")
	api.HandleFunc("/auth/login", rt.Auth.Login).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(requireAuth)

	protected.HandleFunc("/auth/logout", rt.Auth.Logout).Methods("POST")

	protected.HandleFunc("/user", rt.Users.GetProfile).Methods("GET")
	protected.HandleFunc("/user", rt.Users.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/users/search", rt.Users.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", rt.Users.GetUser).Methods("GET")

	protected.HandleFunc("/friends", rt.Friends.GetFriends).Methods("GET")
	protected.HandleFunc("/friends/requests", rt.Friends.GetIncomingRequests).Methods("GET")
	protected.HandleFunc("/friends/requests", rt.Friends.SendRequest).Methods("POST")
	protected.HandleFunc("/friends/requests/sent", rt.Friends.GetSentRequests).Methods("GET")
	protected.HandleFunc("/friends/requests/{id}/accept", rt.Friends.AcceptRequest).Methods("PUT")
	protected.HandleFunc("/friends/requests/{id}", rt.Friends.RejectRequest).Methods("DELETE")
	protected.HandleFunc("/friends/{id}", rt.Friends.RemoveFriend).Methods("DELETE")

	protected.HandleFunc("/posts", rt.Posts.CreatePost).Methods("POST")
	protected.HandleFunc("/posts/{id}", rt.Posts.GetPost).Methods("GET")
	protected.HandleFunc("/posts/{id}/like", rt.Posts.LikePost).Methods("POST")
	protected.HandleFunc("/posts/{id}/like", rt.Posts.UnlikePost).Methods("DELETE")
	protected.HandleFunc("/posts/{id}/comments", rt.Posts.AddComment).Methods("POST")
	protected.HandleFunc("/posts/{id}/share", rt.Posts.SharePost).Methods("POST")

	protected.HandleFunc("/feed", rt.Feed.GetFeed).Methods("GET")
	protected.HandleFunc("/memories", rt.Feed.GetMemories).Methods("GET")
	protected.HandleFunc("/memories/calendar", rt.Feed.GetMemoriesCalendar).Methods("GET")
	protected.HandleFunc("/capture/status", rt.Feed.GetCaptureStatus).Methods("GET")
}
