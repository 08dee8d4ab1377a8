// Package memory implements the repository interfaces in process memory.
// All repositories returned by one DB share a single lock, so multi-table
// writes are atomic the same way a database transaction would make them.
package memory

import (
	"sort"
	"sync"

	"programhub/internal/model"
)

// DB holds every table.
type DB struct {
	mu         sync.RWMutex
	programs   map[string]model.Program
	links      map[string]map[int64]struct{}
	categories map[int64]model.Category
	comments   map[string]model.Comment
	users      map[string]model.UserSummary
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		programs:   make(map[string]model.Program),
		links:      make(map[string]map[int64]struct{}),
		categories: make(map[int64]model.Category),
		comments:   make(map[string]model.Comment),
		users:      make(map[string]model.UserSummary),
	}
}

// Programs returns the program and counter repository.
func (db *DB) Programs() *ProgramRepo { return &ProgramRepo{db: db} }

// Categories returns the category repository.
func (db *DB) Categories() *CategoryRepo { return &CategoryRepo{db: db} }

// Comments returns the comment repository.
func (db *DB) Comments() *CommentRepo { return &CommentRepo{db: db} }

// Users returns the user directory.
func (db *DB) Users() *UserRepo { return &UserRepo{db: db} }

// PutCategory inserts or replaces a category.
func (db *DB) PutCategory(c model.Category) {
	db.mu.Lock()
	db.categories[c.ID] = c
	db.mu.Unlock()
}

// DeleteCategory removes a category and its program links. Programs stay.
func (db *DB) DeleteCategory(id int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.categories, id)
	for _, set := range db.links {
		delete(set, id)
	}
}

// PutUser inserts or replaces a user summary.
func (db *DB) PutUser(u model.UserSummary) {
	db.mu.Lock()
	db.users[u.ID] = u
	db.mu.Unlock()
}

// linkedCategories must be called with db.mu held.
func (db *DB) linkedCategories(programID string) []model.Category {
	out := make([]model.Category, 0, len(db.links[programID]))
	for id := range db.links[programID] {
		if c, ok := db.categories[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
