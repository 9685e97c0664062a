package domain

import "time"

// User is an account allowed to upvote and request summaries.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// UpvoteAction is the outcome of toggling an upvote.
type UpvoteAction string

const (
	UpvoteAdded   UpvoteAction = "Article upvoted"
	UpvoteRemoved UpvoteAction = "Upvote removed"
)

// NecessityPrice is one row of the government necessities price feed.
type NecessityPrice struct {
	Category  string `json:"類別"`
	Number    int    `json:"編號"`
	Name      string `json:"產品名稱"`
	Spec      string `json:"規格"`
	Value     string `json:"統計值"`
	StartTime string `json:"時間起點"`
	EndTime   string `json:"時間終點"`
}
