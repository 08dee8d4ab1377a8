package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"programhub/internal/model"
	"programhub/internal/repository"
)

const programColumns = `p.id, p.user_id, p.title, p.description, p.file_path, p.thumbnail_path,
		p.programming_language, p.version, p.status, p.view_count, p.download_count,
		p.created_at, p.updated_at`

// ProgramPostgres is a PostgreSQL implementation of repository.ProgramRepository
// and repository.CounterRepository.
type ProgramPostgres struct {
	db *sql.DB
}

// NewProgramPostgres creates a new ProgramPostgres repository.
func NewProgramPostgres(db *sql.DB) *ProgramPostgres {
	return &ProgramPostgres{db: db}
}

var (
	_ repository.ProgramRepository = (*ProgramPostgres)(nil)
	_ repository.CounterRepository = (*ProgramPostgres)(nil)
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*model.Program, error) {
	var (
		p     model.Program
		thumb sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.FilePath,
		&thumb,
		&p.Language,
		&p.Version,
		&p.Status,
		&p.ViewCount,
		&p.DownloadCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if thumb.Valid {
		p.ThumbnailPath = &thumb.String
	}
	return &p, nil
}

// Create inserts a program row and its category links in one transaction.
func (r *ProgramPostgres) Create(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO programs AS p (id, user_id, title, description, file_path, thumbnail_path,
			programming_language, version, status, view_count, download_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11)
		RETURNING ` + programColumns
	out, err := scanProgram(tx.QueryRowContext(ctx, q,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Description,
		p.FilePath,
		p.ThumbnailPath,
		p.Language,
		p.Version,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	if err := attachCategories(ctx, tx, out.ID, categoryIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single program by its ID.
func (r *ProgramPostgres) FindByID(ctx context.Context, id string) (*model.Program, error) {
	const q = `SELECT ` + programColumns + ` FROM programs p WHERE p.id = $1`
	p, err := scanProgram(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns programs matching q using LIMIT/OFFSET pagination and a total count.
func (r *ProgramPostgres) List(ctx context.Context, q repository.ProgramQuery) (*repository.PageResult[model.Program], error) {
	where, args := buildProgramFilter(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM programs p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	sort := q.Sort
	if !sort.Valid() {
		sort = repository.SortCreatedAt
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	args = append(args, q.Page.Limit, q.Page.Offset)
	qList := fmt.Sprintf(`SELECT %s FROM programs p WHERE %s ORDER BY p.%s %s, p.id %s LIMIT $%d OFFSET $%d`,
		programColumns, where, sort, dir, dir, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Program, 0)
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Program]{Items: items, Total: total}, nil
}

func buildProgramFilter(q repository.ProgramQuery) (string, []any) {
	clauses := []string{"p.status = $1"}
	args := []any{string(q.Status)}

	if q.CategorySlug != "" {
		args = append(args, q.CategorySlug)
		clauses = append(clauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM category_program cp
			JOIN categories c ON c.id = cp.category_id
			WHERE cp.program_id = p.id AND c.slug = $%d)`, len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf(`(p.title ILIKE $%d OR p.description ILIKE $%d)`, len(args), len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// escapeLike neutralizes LIKE wildcards using PostgreSQL's default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update writes mutable columns and optionally re-syncs category links.
func (r *ProgramPostgres) Update(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		UPDATE programs AS p
		SET title = $2, description = $3, file_path = $4, thumbnail_path = $5,
			programming_language = $6, version = $7, status = $8, updated_at = $9
		WHERE p.id = $1
		RETURNING ` + programColumns
	out, err := scanProgram(tx.QueryRowContext(ctx, q,
		p.ID,
		p.Title,
		p.Description,
		p.FilePath,
		p.ThumbnailPath,
		p.Language,
		p.Version,
		p.Status,
		p.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if categoryIDs != nil {
		if err := syncCategories(ctx, tx, out.ID, categoryIDs); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the program, its category links and its comments.
func (r *ProgramPostgres) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := detachCategories(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE program_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

// IncrementViews atomically bumps view_count.
func (r *ProgramPostgres) IncrementViews(ctx context.Context, programID string) (int64, error) {
	return r.increment(ctx, `UPDATE programs SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, programID)
}

// IncrementDownloads atomically bumps download_count.
func (r *ProgramPostgres) IncrementDownloads(ctx context.Context, programID string) (int64, error) {
	return r.increment(ctx, `UPDATE programs SET download_count = download_count + 1 WHERE id = $1 RETURNING download_count`, programID)
}

func (r *ProgramPostgres) increment(ctx context.Context, q, id string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return n, nil
}
