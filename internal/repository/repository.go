// Package repository contains data access abstractions. Implementations live in
// subpackages (postgres, memory) and hold no business rules.
package repository

import (
	"context"
	"errors"

	"programhub/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// SortField is a column programs can be ordered by.
type SortField string

const (
	SortCreatedAt     SortField = "created_at"
	SortTitle         SortField = "title"
	SortDownloadCount SortField = "download_count"
	SortViewCount     SortField = "view_count"
)

// Valid reports whether f is an allowed sort column.
func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortTitle, SortDownloadCount, SortViewCount:
		return true
	}
	return false
}

// ProgramQuery filters a program listing. Fields are already normalized by the caller.
type ProgramQuery struct {
	Status       model.ProgramStatus
	CategorySlug string
	Search       string
	Sort         SortField
	Desc         bool
	Page         PageQuery
}

// ProgramRepository persists program rows and their category links.
type ProgramRepository interface {
	// Create inserts the program and links it to categoryIDs in one transaction.
	Create(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error)

	// FindByID returns ErrNotFound when no program has the id.
	FindByID(ctx context.Context, id string) (*model.Program, error)

	// List returns one page of programs matching q and the total match count.
	List(ctx context.Context, q ProgramQuery) (*PageResult[model.Program], error)

	// Update writes the mutable columns of p. A nil categoryIDs leaves links
	// untouched; a non-nil slice (even empty) replaces them, in the same transaction.
	Update(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error)

	// Delete removes the program with its links and comments. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// CounterRepository performs atomic counter increments.
type CounterRepository interface {
	// IncrementViews adds one to view_count and returns the new value.
	IncrementViews(ctx context.Context, programID string) (int64, error)
	// IncrementDownloads adds one to download_count and returns the new value.
	IncrementDownloads(ctx context.Context, programID string) (int64, error)
}

// CategoryRepository reads the category store.
type CategoryRepository interface {
	// List returns all categories ordered by name.
	List(ctx context.Context) ([]model.Category, error)
	// FindBySlug returns ErrNotFound for an unknown slug.
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	// Exists reports whether a category with id exists.
	Exists(ctx context.Context, id int64) (bool, error)
	// Resolve returns the categories among ids that exist. Unknown ids are skipped.
	Resolve(ctx context.Context, ids []int64) ([]model.Category, error)
	// ForPrograms returns the categories linked to each of programIDs.
	ForPrograms(ctx context.Context, programIDs []string) (map[string][]model.Category, error)
}

// CommentRepository persists comments.
type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) (*model.Comment, error)
	// FindByID returns ErrNotFound when no comment has the id.
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	// UpdateContent sets the text and updated_at of a comment.
	UpdateContent(ctx context.Context, id, content string) (*model.Comment, error)
	Delete(ctx context.Context, id string) error
	// ListByProgram returns the comments of a program, oldest first.
	ListByProgram(ctx context.Context, programID string) ([]model.Comment, error)
}

// UserRepository resolves display names for hydration.
type UserRepository interface {
	// Summaries returns the known users among ids keyed by id.
	Summaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error)
}
