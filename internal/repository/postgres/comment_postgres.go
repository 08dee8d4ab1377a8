package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"programhub/internal/model"
	"programhub/internal/repository"
)

// CommentPostgres persists comments.
type CommentPostgres struct {
	db *sql.DB
}

// NewCommentPostgres creates a new CommentPostgres repository.
func NewCommentPostgres(db *sql.DB) *CommentPostgres {
	return &CommentPostgres{db: db}
}

var _ repository.CommentRepository = (*CommentPostgres)(nil)

const commentColumns = `id, program_id, user_id, content, created_at, updated_at`

func scanComment(row rowScanner) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.ProgramID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CommentPostgres) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	const q = `
		INSERT INTO comments (id, program_id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + commentColumns
	return scanComment(r.db.QueryRowContext(ctx, q,
		c.ID, c.ProgramID, c.AuthorID, c.Content, c.CreatedAt, c.UpdatedAt))
}

func (r *CommentPostgres) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	return scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
}

func (r *CommentPostgres) UpdateContent(ctx context.Context, id, content string) (*model.Comment, error) {
	const q = `
		UPDATE comments SET content = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + commentColumns
	return scanComment(r.db.QueryRowContext(ctx, q, id, content, time.Now().UTC()))
}

func (r *CommentPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CommentPostgres) ListByProgram(ctx context.Context, programID string) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE program_id = $1 ORDER BY created_at, id`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
