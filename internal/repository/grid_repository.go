package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendance-grid-api/internal/dto"
	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// GridRepository reads the raw attendance snapshot for a class and period.
// One FetchGrid call produces one consistent snapshot: the student page and
// all of its records come from the same queries in sequence, and the grid is
// always recomposed from scratch rather than patched.
type GridRepository struct {
	db *sqlx.DB
}

// NewGridRepository constructs the repository.
func NewGridRepository(db *sqlx.DB) *GridRepository {
	return &GridRepository{db: db}
}

type studentRow struct {
	RowNumber int    `db:"row_number"`
	ID        string `db:"id"`
	FullName  string `db:"full_name"`
	Gender    string `db:"gender"`
}

type attendanceRow struct {
	StudentID string `db:"student_id"`
	SubjectID string `db:"subject_id"`
	Date      string `db:"attendance_date"`
	Session   string `db:"session"`
	Status    string `db:"status"`
	Notes     string `db:"notes"`
}

// FetchGrid loads the class header, the requested student page and every
// attendance record of those students inside the period, shaped as the
// sparse per-student, per-date map the composition layer decodes.
func (r *GridRepository) FetchGrid(ctx context.Context, classID, startDate, endDate, search string, page, pageSize int) (*dto.RawGridSnapshot, error) {
	var class models.ClassInfo
	classQuery := `SELECT id AS class_id, name AS class_name, COALESCE(code, '') AS class_code FROM classes WHERE id = $1`
	if err := r.db.GetContext(ctx, &class, classQuery, classID); err != nil {
		return nil, fmt.Errorf("fetch class %s: %w", classID, err)
	}

	offset := (page - 1) * pageSize
	pattern := "%" + search + "%"

	studentsQuery := `SELECT ROW_NUMBER() OVER (ORDER BY full_name, id) AS row_number, id, full_name, COALESCE(gender, '') AS gender
FROM students
WHERE class_id = $1 AND ($2 = '%%' OR full_name ILIKE $2 OR id ILIKE $2)
ORDER BY full_name, id
LIMIT $3 OFFSET $4`
	var students []studentRow
	if err := r.db.SelectContext(ctx, &students, studentsQuery, classID, pattern, pageSize, offset); err != nil {
		return nil, fmt.Errorf("fetch students for class %s: %w", classID, err)
	}

	countQuery := `SELECT COUNT(*) FROM students WHERE class_id = $1 AND ($2 = '%%' OR full_name ILIKE $2 OR id ILIKE $2)`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, classID, pattern); err != nil {
		return nil, fmt.Errorf("count students for class %s: %w", classID, err)
	}

	snapshot := &dto.RawGridSnapshot{
		Class:      class,
		Students:   make([]dto.RawStudentAttendance, 0, len(students)),
		TotalCount: total,
	}
	if len(students) == 0 {
		return snapshot, nil
	}

	studentIDs := make([]string, len(students))
	byStudent := make(map[string]*dto.RawStudentAttendance, len(students))
	for i, s := range students {
		studentIDs[i] = s.ID
		snapshot.Students = append(snapshot.Students, dto.RawStudentAttendance{
			RowNumber:  s.RowNumber,
			StudentID:  s.ID,
			FullName:   s.FullName,
			Gender:     s.Gender,
			Attendance: make(map[string]dto.RawDayData),
		})
		byStudent[s.ID] = &snapshot.Students[i]
	}

	recordsQuery := `SELECT student_id, subject_id, to_char(attendance_date, 'YYYY-MM-DD') AS attendance_date,
COALESCE(session, '') AS session, status, COALESCE(notes, '') AS notes
FROM attendance_records
WHERE student_id = ANY($1) AND attendance_date BETWEEN $2 AND $3
ORDER BY attendance_date, subject_id, session`
	var records []attendanceRow
	if err := r.db.SelectContext(ctx, &records, recordsQuery, pq.Array(studentIDs), startDate, endDate); err != nil {
		return nil, fmt.Errorf("fetch attendance records for class %s: %w", classID, err)
	}

	for _, rec := range records {
		student, ok := byStudent[rec.StudentID]
		if !ok {
			continue
		}
		day, ok := student.Attendance[rec.Date]
		if !ok {
			day = dto.RawDayData{Subjects: make(map[string][]dto.RawSessionRecord)}
		}
		day.Subjects[rec.SubjectID] = append(day.Subjects[rec.SubjectID], dto.RawSessionRecord{
			Session: rec.Session,
			Status:  rec.Status,
			Notes:   rec.Notes,
		})
		student.Attendance[rec.Date] = day
	}

	return snapshot, nil
}
