// Package metrics holds the domain counters exported on /metrics next to the
// HTTP request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UsersRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dailyduo_users_registered_total",
			Help: "Total number of registered users",
		},
	)
	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dailyduo_posts_created_total",
			Help: "Total number of posts created",
		},
	)
	DailyLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dailyduo_daily_limit_rejections_total",
			Help: "Total number of posts rejected because the author already posted that day",
		},
	)
	FriendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyduo_friend_requests_total",
			Help: "Friend request transitions by outcome",
		},
		[]string{"outcome"},
	)
	PostInteractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyduo_post_interactions_total",
			Help: "Likes, unlikes, comments and shares",
		},
		[]string{"kind"},
	)
	EventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyduo_event_publish_failures_total",
			Help: "Domain events that could not be published",
		},
		[]string{"type"},
	)
)

// Register adds the domain counters to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		UsersRegistered,
		PostsCreated,
		DailyLimitRejections,
		FriendRequests,
		PostInteractions,
		EventPublishFailures,
	)
}
