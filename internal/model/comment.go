package model

import "time"

// Comment is a piece of discussion attached to a program.
type Comment struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"program_id"`
	AuthorID  string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentDetail is a comment with its author's display name.
type CommentDetail struct {
	Comment
	Author UserSummary `json:"user"`
}
