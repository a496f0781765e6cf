package model

type DashboardStats struct {
	Users          int    `json:"users"`
	Admins         int    `json:"admins"`
	Posts          int    `json:"posts"`
	PublishedPosts int    `json:"published_posts"`
	Comments       int    `json:"comments"`
	RecentPosts    []Post `json:"recent_posts"`
}
