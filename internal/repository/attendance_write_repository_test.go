package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

func newWriteRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func forceWrite(student string) models.AttendanceWrite {
	return models.AttendanceWrite{
		StudentID:      student,
		TeacherID:      "t1",
		SubjectID:      "m1",
		AttendanceDate: "2026-03-04",
		Status:         models.AttendanceStatusAbsent,
		ForceUpdate:    true,
	}
}

func TestSubmitBatchCommitsAllWrites(t *testing.T) {
	db, mock, cleanup := newWriteRepoMock(t)
	defer cleanup()
	repo := NewAttendanceWriteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SubmitBatch(context.Background(), []models.AttendanceWrite{forceWrite("s1"), forceWrite("s2")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newWriteRepoMock(t)
	defer cleanup()
	repo := NewAttendanceWriteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.SubmitBatch(context.Background(), []models.AttendanceWrite{forceWrite("s1"), forceWrite("s2")})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBatchEmptyIsNoOp(t *testing.T) {
	db, mock, cleanup := newWriteRepoMock(t)
	defer cleanup()
	repo := NewAttendanceWriteRepository(db)

	err := repo.SubmitBatch(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
