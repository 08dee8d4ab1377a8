package model

import "time"

// ProgramStatus is the publication state of a program.
type ProgramStatus string

const (
	StatusPublished ProgramStatus = "published"
	StatusDraft     ProgramStatus = "draft"
	StatusArchived  ProgramStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ProgramStatus) Valid() bool {
	switch s {
	case StatusPublished, StatusDraft, StatusArchived:
		return true
	}
	return false
}

// Program is a user-submitted downloadable artifact plus its metadata.
// FilePath and ThumbnailPath are artifact references, not URLs.
type Program struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"user_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	FilePath      string        `json:"file_path"`
	ThumbnailPath *string       `json:"thumbnail_path"`
	Language      string        `json:"programming_language"`
	Version       string        `json:"version"`
	Status        ProgramStatus `json:"status"`
	ViewCount     int64         `json:"view_count"`
	DownloadCount int64         `json:"download_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ProgramDetail is a program hydrated with its owner and categories.
// Comments is nil on list items and always set, possibly empty, on single reads.
type ProgramDetail struct {
	Program
	Owner      UserSummary      `json:"user"`
	Categories []Category       `json:"categories"`
	Comments   *[]CommentDetail `json:"comments,omitempty"`
}
