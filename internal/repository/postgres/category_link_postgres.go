package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Category links are always written inside the caller's transaction so a
// program row never commits with a partial set.

func attachCategories(ctx context.Context, tx *sql.Tx, programID string, categoryIDs []int64) error {
	const q = `
		INSERT INTO category_program (category_id, program_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	for _, cid := range categoryIDs {
		if _, err := tx.ExecContext(ctx, q, cid, programID); err != nil {
			return fmt.Errorf("attach category %d: %w", cid, err)
		}
	}
	return nil
}

func detachCategories(ctx context.Context, tx *sql.Tx, programID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_program WHERE program_id = $1`, programID); err != nil {
		return fmt.Errorf("detach categories: %w", err)
	}
	return nil
}

func syncCategories(ctx context.Context, tx *sql.Tx, programID string, categoryIDs []int64) error {
	if err := detachCategories(ctx, tx, programID); err != nil {
		return err
	}
	return attachCategories(ctx, tx, programID, categoryIDs)
}

// placeholders returns "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ps, ", ")
}
