package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/submission"
)

type submissionRow struct {
	ID           int        `db:"id"`
	AssignmentID int        `db:"assignment_id"`
	StudentID    string     `db:"student_id"`
	Content      string     `db:"content"`
	FilePath     string     `db:"file_path"`
	SubmittedAt  time.Time  `db:"submitted_at"`
	Grade        *float64   `db:"grade"`
	Feedback     string     `db:"feedback"`
	GradedAt     *time.Time `db:"graded_at"`
}

func (r submissionRow) toSubmission() submission.Submission {
	return submission.Submission(r)
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(sub submission.Submission) (submission.Submission, error) {
	err := repo.db.Get(
		&sub.ID,
		`INSERT INTO submissions (assignment_id, student_id, content, file_path, submitted_at, feedback)
		 VALUES ($1, $2, $3, $4, $5, '')
		 RETURNING id`,
		sub.AssignmentID, sub.StudentID, sub.Content, sub.FilePath, sub.SubmittedAt,
	)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(id int) (submission.Submission, error) {
	var row submissionRow
	if err := repo.db.Get(&row, `SELECT * FROM submissions WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *submissionRepository) QueryByAssignment(assignmentID int) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.Select(
		&rows,
		`SELECT * FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`,
		assignmentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions by assignment")
	}
	return toSubmissions(rows), nil
}

func (repo *submissionRepository) QueryByAssignmentAndStudent(assignmentID int, studentID string) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.Select(
		&rows,
		`SELECT * FROM submissions WHERE assignment_id = $1 AND student_id = $2 ORDER BY submitted_at DESC`,
		assignmentID, studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions by assignment and student")
	}
	return toSubmissions(rows), nil
}

func (repo *submissionRepository) QueryByCourseAndStudent(courseID int, studentID string) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.Select(
		&rows,
		`SELECT s.* FROM submissions s
		 JOIN assignments a ON a.id = s.assignment_id
		 WHERE a.course_id = $1 AND s.student_id = $2
		 ORDER BY s.submitted_at DESC`,
		courseID, studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions by course and student")
	}
	return toSubmissions(rows), nil
}

func (repo *submissionRepository) SetGrade(id int, grade float64, feedback string, gradedAt time.Time) (submission.Submission, error) {
	rows, err := repo.db.Queryx(
		`UPDATE submissions SET grade = $2, feedback = $3, graded_at = $4
		 WHERE id = $1
		 RETURNING *`,
		id, grade, feedback, gradedAt,
	)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "grading submission")
	}
	defer rows.Close()

	if !rows.Next() {
		return submission.Submission{}, submission.ErrNotFound
	}
	var row submissionRow
	if err = rows.StructScan(&row); err != nil {
		return submission.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.toSubmission(), nil
}

func toSubmissions(rows []submissionRow) []submission.Submission {
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs
}
