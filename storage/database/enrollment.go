package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/enroll"
)

type enrollmentRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	StudentID string    `db:"student_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() enroll.Enrollment {
	return enroll.Enrollment(r)
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) enroll.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetEnrollment(courseID int, studentID string) (enroll.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.Get(
		&row,
		`SELECT * FROM enrollments WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return enroll.Enrollment{}, enroll.ErrNotFound
		}
		return enroll.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

// CreateEnrollment is insert-if-absent: a concurrent duplicate loses the
// insert race on the (course_id, student_id) unique constraint and gets
// the winner's record back.
func (repo *enrollmentRepository) CreateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	err := repo.db.Get(
		&enr.ID,
		`INSERT INTO enrollments (course_id, student_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (course_id, student_id) DO NOTHING
		 RETURNING id`,
		enr.CourseID, enr.StudentID, enr.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return repo.GetEnrollment(enr.CourseID, enr.StudentID)
	}
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(courseID int, studentID string) error {
	_, err := repo.db.Exec(
		`DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID,
	)
	return errors.Wrap(err, "deleting enrollment")
}

func (repo *enrollmentRepository) QueryEnrollmentsByCourse(courseID int) ([]enroll.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.Select(
		&rows,
		`SELECT * FROM enrollments WHERE course_id = $1 ORDER BY created_at`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments by course")
	}
	return toEnrollments(rows), nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(studentID string) ([]enroll.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.Select(
		&rows,
		`SELECT * FROM enrollments WHERE student_id = $1 ORDER BY created_at`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments by student")
	}
	return toEnrollments(rows), nil
}

func toEnrollments(rows []enrollmentRow) []enroll.Enrollment {
	enrollments := make([]enroll.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments
}
