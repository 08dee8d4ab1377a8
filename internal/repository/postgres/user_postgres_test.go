package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPostgres_Summaries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name FROM users WHERE id IN \(\$1, \$2\)`).
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("u1", "Ada"))

	got, err := repo.Summaries(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Ada", got["u1"].Name)

	// no ids means no query
	empty, err := repo.Summaries(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_SummariesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM users").WillReturnError(errors.New("boom"))

	_, err = NewUserPostgres(db).Summaries(context.Background(), []string{"u1"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
