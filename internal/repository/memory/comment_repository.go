package memory

import (
	"context"
	"sort"
	"time"

	"programhub/internal/model"
	"programhub/internal/repository"
)

// CommentRepo implements repository.CommentRepository.
type CommentRepo struct {
	db *DB
}

var _ repository.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.programs[c.ProgramID]; !ok {
		return nil, repository.ErrNotFound
	}
	stored := *c
	r.db.comments[c.ID] = stored
	return &stored, nil
}

func (r *CommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, id, content string) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	r.db.comments[id] = c
	return &c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

func (r *CommentRepo) ListByProgram(ctx context.Context, programID string) ([]model.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Comment, 0)
	for _, c := range r.db.comments {
		if c.ProgramID == programID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	db *DB
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Summaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[string]model.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
