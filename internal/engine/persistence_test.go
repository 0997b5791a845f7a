package engine_test

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
	"casework/internal/domain"
	"casework/internal/engine"
	"casework/internal/events"
)

func TestMemberInsertFailureRollsBackAndIsRecorded(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	eng := engine.New(conn, db.Postgres, config.Default())

	boom := errors.New("value too long for type character varying(255)")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO family_members(`)).
		WithArgs(sqlmock.AnyArg(), "fam-1", 0, "Pedro", "Filho", 9, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO family_members(`)).
		WithArgs(sqlmock.AnyArg(), "fam-1", 1, "Rosa", "Filha", nil, nil).
		WillReturnError(boom)
	mock.ExpectRollback()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES ($1,$2,$3,$4,$5,$6)`)).
		WithArgs(sqlmock.AnyArg(), events.MemberInsertFailed, "family", "fam-1", engine.PublicActor, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = eng.InsertMembers(context.Background(), "fam-1", []domain.MemberInput{
		{Name: " Pedro ", Kinship: "Filho", Age: "9"},
		{Name: ""},
		{Name: "Rosa", Kinship: "Filha", Age: "dez"},
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "insert member 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberInsertFailureSurvivesEventLogOutage(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	eng := engine.New(conn, db.Postgres, config.Default())

	boom := errors.New("connection reset by peer")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO family_members(`)).WillReturnError(boom)
	mock.ExpectRollback()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events(`)).WillReturnError(boom)

	err = eng.InsertMembers(context.Background(), "fam-1", []domain.MemberInput{{Name: "Pedro"}})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoMembersTouchesNothing(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	eng := engine.New(conn, db.Postgres, config.Default())

	require.NoError(t, eng.InsertMembers(context.Background(), "fam-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
