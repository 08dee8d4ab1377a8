package postgres

import (
	"context"
	"database/sql"
	"errors"

	"programhub/internal/model"
	"programhub/internal/repository"
)

// CategoryPostgres reads the categories table.
type CategoryPostgres struct {
	db *sql.DB
}

// NewCategoryPostgres creates a new CategoryPostgres repository.
func NewCategoryPostgres(db *sql.DB) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

var _ repository.CategoryRepository = (*CategoryPostgres)(nil)

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		c    model.Category
		desc sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &desc); err != nil {
		return nil, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	return &c, nil
}

func (r *CategoryPostgres) queryCategories(ctx context.Context, q string, args ...any) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CategoryPostgres) List(ctx context.Context) ([]model.Category, error) {
	return r.queryCategories(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
}

func (r *CategoryPostgres) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description FROM categories WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CategoryPostgres) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *CategoryPostgres) Resolve(ctx context.Context, ids []int64) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryCategories(ctx,
		`SELECT id, name, slug, description FROM categories WHERE id IN (`+placeholders(1, len(ids))+`) ORDER BY name`,
		args...)
}

func (r *CategoryPostgres) ForPrograms(ctx context.Context, programIDs []string) (map[string][]model.Category, error) {
	out := make(map[string][]model.Category, len(programIDs))
	if len(programIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(programIDs))
	for i, id := range programIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT cp.program_id, c.id, c.name, c.slug, c.description
		FROM category_program cp
		JOIN categories c ON c.id = cp.category_id
		WHERE cp.program_id IN (`+placeholders(1, len(programIDs))+`)
		ORDER BY c.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			programID string
			c         model.Category
			desc      sql.NullString
		)
		if err := rows.Scan(&programID, &c.ID, &c.Name, &c.Slug, &desc); err != nil {
			return nil, err
		}
		if desc.Valid {
			c.Description = &desc.String
		}
		out[programID] = append(out[programID], c)
	}
	return out, rows.Err()
}
