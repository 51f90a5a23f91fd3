package model

import (
	"time"
)

// MetricSnapshot is one platform's account numbers as reported by the metrics provider.
type MetricSnapshot struct {
	Platform       string    `json:"platform"`
	FollowersCount float64   `json:"followers_count"`
	FollowingCount float64   `json:"following_count"`
	PostsCount     float64   `json:"posts_count"`
	EngagementRate float64   `json:"engagement_rate"`
	LastUpdated    time.Time `json:"last_updated"`
}
