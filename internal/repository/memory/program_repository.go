package memory

import (
	"context"
	"sort"
	"strings"

	"programhub/internal/model"
	"programhub/internal/repository"
)

// ProgramRepo implements repository.ProgramRepository and repository.CounterRepository.
type ProgramRepo struct {
	db *DB
}

var (
	_ repository.ProgramRepository = (*ProgramRepo)(nil)
	_ repository.CounterRepository = (*ProgramRepo)(nil)
)

func (r *ProgramRepo) Create(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := *p
	stored.ViewCount, stored.DownloadCount = 0, 0
	r.db.programs[stored.ID] = stored
	r.db.links[stored.ID] = linkSet(categoryIDs)

	out := stored
	return &out, nil
}

func (r *ProgramRepo) FindByID(ctx context.Context, id string) (*model.Program, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProgramRepo) List(ctx context.Context, q repository.ProgramQuery) (*repository.PageResult[model.Program], error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	needle := strings.ToLower(q.Search)
	matches := make([]model.Program, 0)
	for _, p := range r.db.programs {
		if p.Status != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if q.CategorySlug != "" && !r.hasSlug(p.ID, q.CategorySlug) {
			continue
		}
		matches = append(matches, p)
	}

	sort.Slice(matches, func(i, j int) bool {
		c := compare(matches[i], matches[j], q.Sort)
		if c == 0 {
			c = strings.Compare(matches[i].ID, matches[j].ID)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matches)
	start := min(q.Page.Offset, total)
	end := total
	if q.Page.Limit > 0 {
		end = min(start+q.Page.Limit, total)
	}
	return &repository.PageResult[model.Program]{Items: matches[start:end], Total: total}, nil
}

func (r *ProgramRepo) hasSlug(programID, slug string) bool {
	for id := range r.db.links[programID] {
		if c, ok := r.db.categories[id]; ok && c.Slug == slug {
			return true
		}
	}
	return false
}

func compare(a, b model.Program, field repository.SortField) int {
	switch field {
	case repository.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case repository.SortDownloadCount:
		return cmpInt(a.DownloadCount, b.DownloadCount)
	case repository.SortViewCount:
		return cmpInt(a.ViewCount, b.ViewCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Update keeps the stored counters; they only change through the increment methods.
func (r *ProgramRepo) Update(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.programs[p.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := *p
	next.OwnerID = cur.OwnerID
	next.CreatedAt = cur.CreatedAt
	next.ViewCount = cur.ViewCount
	next.DownloadCount = cur.DownloadCount
	r.db.programs[p.ID] = next

	if categoryIDs != nil {
		r.db.links[p.ID] = linkSet(categoryIDs)
	}
	return &next, nil
}

func (r *ProgramRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.programs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.programs, id)
	delete(r.db.links, id)
	for cid, c := range r.db.comments {
		if c.ProgramID == id {
			delete(r.db.comments, cid)
		}
	}
	return nil
}

func (r *ProgramRepo) IncrementViews(ctx context.Context, programID string) (int64, error) {
	return r.increment(programID, func(p *model.Program) *int64 { return &p.ViewCount })
}

func (r *ProgramRepo) IncrementDownloads(ctx context.Context, programID string) (int64, error) {
	return r.increment(programID, func(p *model.Program) *int64 { return &p.DownloadCount })
}

func (r *ProgramRepo) increment(id string, field func(*model.Program) *int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.programs[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	n := field(&p)
	*n++
	r.db.programs[id] = p
	return *n, nil
}

func linkSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
