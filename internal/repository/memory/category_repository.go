package memory

import (
	"context"
	"sort"

	"programhub/internal/model"
	"programhub/internal/repository"
)

// CategoryRepo implements repository.CategoryRepository.
type CategoryRepo struct {
	db *DB
}

var _ repository.CategoryRepository = (*CategoryRepo)(nil)

func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, c := range r.db.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CategoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	_, ok := r.db.categories[id]
	return ok, nil
}

func (r *CategoryRepo) Resolve(ctx context.Context, ids []int64) ([]model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.db.categories[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepo) ForPrograms(ctx context.Context, programIDs []string) (map[string][]model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[string][]model.Category, len(programIDs))
	for _, id := range programIDs {
		if cats := r.db.linkedCategories(id); len(cats) > 0 {
			out[id] = cats
		}
	}
	return out, nil
}
