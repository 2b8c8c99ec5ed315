package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// AttendanceWriteRepository persists submitted attendance batches.
type AttendanceWriteRepository struct {
	db *sqlx.DB
}

// NewAttendanceWriteRepository constructs the repository.
func NewAttendanceWriteRepository(db *sqlx.DB) *AttendanceWriteRepository {
	return &AttendanceWriteRepository{db: db}
}

// SubmitBatch writes the batch inside a single transaction: any failure
// rolls everything back, so partial application is impossible. Writes with
// ForceUpdate overwrite an existing record for the same cell; without it a
// conflicting row fails the whole batch.
func (r *AttendanceWriteRepository) SubmitBatch(ctx context.Context, writes []models.AttendanceWrite) error {
	if len(writes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	upsert := `INSERT INTO attendance_records (id, student_id, teacher_id, subject_id, attendance_date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (student_id, subject_id, attendance_date)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, teacher_id = EXCLUDED.teacher_id, updated_at = EXCLUDED.updated_at`

	insert := `INSERT INTO attendance_records (id, student_id, teacher_id, subject_id, attendance_date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (student_id, subject_id, attendance_date) DO NOTHING
RETURNING id`

	now := time.Now().UTC()
	for _, write := range writes {
		if write.ForceUpdate {
			if _, err := tx.ExecContext(ctx, upsert, uuid.NewString(), write.StudentID, write.TeacherID, write.SubjectID, write.AttendanceDate, write.Status, write.Notes, now); err != nil {
				return fmt.Errorf("write attendance for student %s on %s: %w", write.StudentID, write.AttendanceDate, err)
			}
			continue
		}
		var insertedID string
		if err := tx.QueryRowxContext(ctx, insert, uuid.NewString(), write.StudentID, write.TeacherID, write.SubjectID, write.AttendanceDate, write.Status, write.Notes, now).Scan(&insertedID); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("attendance batch: record exists for student %s subject %s on %s", write.StudentID, write.SubjectID, write.AttendanceDate)
			}
			return fmt.Errorf("insert attendance for student %s on %s: %w", write.StudentID, write.AttendanceDate, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	commit = true
	return nil
}
