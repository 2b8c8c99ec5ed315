package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

func TestDecodeDayRecords(t *testing.T) {
	day := RawDayData{Subjects: map[string][]RawSessionRecord{
		"m2": {{Session: "2", Status: "L", Notes: "traffic"}},
		"m1": {{Session: "1", Status: "P"}, {Session: "2", Status: "P"}},
	}}
	names := map[string]string{"m1": "Math"}

	records := DecodeDayRecords(day, names)
	require.Len(t, records, 3)

	// Deterministic order by subject id.
	assert.Equal(t, "m1", records[0].SubjectID)
	assert.Equal(t, "Math", records[0].SubjectName)
	assert.Equal(t, "m2", records[2].SubjectID)
	assert.Equal(t, "Subject m2", records[2].SubjectName)
	assert.Equal(t, models.AttendanceStatus("L"), records[2].Status)
	assert.Equal(t, "traffic", records[2].Notes)
}

func TestDecodeDayRecordsKeepsUnknownStatus(t *testing.T) {
	day := RawDayData{Subjects: map[string][]RawSessionRecord{
		"m1": {{Status: "X"}},
	}}
	records := DecodeDayRecords(day, nil)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatus("X"), records[0].Status)
}

func TestDecodeDayRecordsEmpty(t *testing.T) {
	assert.Nil(t, DecodeDayRecords(RawDayData{}, nil))
}

func TestSnapshotValidate(t *testing.T) {
	v := validator.New()

	valid := &RawGridSnapshot{Students: []RawStudentAttendance{
		{StudentID: "s1", FullName: "Alice"},
	}}
	require.NoError(t, valid.Validate(v))

	invalid := &RawGridSnapshot{Students: []RawStudentAttendance{
		{StudentID: "", FullName: "Alice"},
	}}
	require.Error(t, invalid.Validate(v))
}
