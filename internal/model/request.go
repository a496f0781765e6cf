package model

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type PostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Published *bool  `json:"published"`
}

type CommentRequest struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

type Page struct {
	Page  int
	Limit int
}

// Normalize clamps paging parameters to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}
