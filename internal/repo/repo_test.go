package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/db"
	"casework/internal/domain"
)

func newMockRepo(t *testing.T) (Repo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return Repo{DB: conn, Dialect: db.Postgres}, mock
}

func TestGetUserMissingRowIsNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id,name,email,role,status,created_at FROM users WHERE id=$1`)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status", "created_at"}))

	_, err := r.GetUser(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMemberUsesPostgresPlaceholders(t *testing.T) {
	r, mock := newMockRepo(t)
	age := 9
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO family_members(id,family_id,position,name,kinship,age,occupation) VALUES ($1,$2,$3,$4,$5,$6,$7)`)).
		WithArgs("m-1", "f-1", 0, "Pedro", "Filho", age, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.InsertMember(ctx, tx, domain.FamilyMember{ID: "m-1", FamilyID: "f-1", Name: "Pedro", Kinship: "Filho", Age: &age}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMembersPropagatesQueryError(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT id,family_id,position`).WithArgs("f-1").WillReturnError(boom)

	_, err := r.ListMembers(context.Background(), "f-1")
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfigWithoutRowIsNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT config_json FROM app_config`).
		WillReturnRows(sqlmock.NewRows([]string{"config_json"}))

	_, err := r.GetConfig(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
