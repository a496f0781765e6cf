package model

import "time"

type Comment struct {
	ID         string    `json:"id" db:"id"`
	PostID     string    `json:"post_id" db:"post_id"`
	UserID     *string   `json:"user_id,omitempty" db:"user_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// OwnerID returns the id of the registered author, or "" for guest comments.
func (c Comment) OwnerID() string {
	if c.UserID == nil {
		return ""
	}
	return *c.UserID
}

type CommentList struct {
	Comments []Comment `json:"comments"`
}
