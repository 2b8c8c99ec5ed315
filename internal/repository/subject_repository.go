package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// SubjectRepository resolves the subjects scheduled for a class per date.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// SubjectsForDate returns the subjects scheduled for the class on the date,
// derived from the weekly schedule via the date's ISO day of week.
func (r *SubjectRepository) SubjectsForDate(ctx context.Context, classID, date string) ([]models.Subject, error) {
	query := `SELECT DISTINCT sub.id AS subject_id, sub.name AS subject_name, COALESCE(sub.code, '') AS subject_code
FROM schedules sch
JOIN subjects sub ON sub.id = sch.subject_id
WHERE sch.class_id = $1 AND sch.day_of_week = EXTRACT(ISODOW FROM $2::date)
ORDER BY sub.name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, classID, date); err != nil {
		return nil, fmt.Errorf("fetch subjects for class %s on %s: %w", classID, date, err)
	}
	return subjects, nil
}
