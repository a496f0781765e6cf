package model

import "time"

type PostAuthor struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Post struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	Published bool       `json:"published" db:"published"`
	AuthorID  string     `json:"author_id" db:"author_id"`
	Author    PostAuthor `json:"author" db:"author"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type PostList struct {
	Posts []Post `json:"posts"`
}
