package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/config"
	"casework/internal/db"
	"casework/internal/repo"
)

var userQuery = regexp.QuoteMeta(`SELECT id,name,email,role,status,created_at FROM users WHERE id=$1`)

var userCols = []string{"id", "name", "email", "role", "status", "created_at"}

func newService(t *testing.T) (Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return Service{Repo: repo.Repo{DB: conn, Dialect: db.Postgres}, Config: config.Default()}, mock
}

func TestRequireGrantsByRole(t *testing.T) {
	s, mock := newService(t)
	mock.ExpectQuery(userQuery).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "Rosa", "rosa@example.org", "VOLUNTEER", "ACTIVE", "2024-12-03T14:30:00Z"))
	mock.ExpectQuery(userQuery).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "Rosa", "rosa@example.org", "VOLUNTEER", "ACTIVE", "2024-12-03T14:30:00Z"))

	ctx := context.Background()
	require.NoError(t, s.Require(ctx, "u-1", config.PermFamiliesRead))
	err := s.Require(ctx, "u-1", config.PermReportsExport)
	var forbidden ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Equal(t, config.PermReportsExport, forbidden.Permission)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInactiveAndUnknownUsersHaveNoPermissions(t *testing.T) {
	s, mock := newService(t)
	mock.ExpectQuery(userQuery).WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-2", "Ana", "ana@example.org", "ADMIN", "INACTIVE", "2024-12-03T14:30:00Z"))
	mock.ExpectQuery(userQuery).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	ctx := context.Background()
	role, perms, err := s.UserPermissions(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", role)
	assert.Empty(t, perms)

	_, perms, err = s.UserPermissions(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, perms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPermissionsRequiresID(t *testing.T) {
	_, _, err := Service{}.UserPermissions(context.Background(), "")
	assert.Error(t, err)
}
