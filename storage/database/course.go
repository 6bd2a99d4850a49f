package database

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
)

type courseRow struct {
	ID           int       `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course(r)
}

type lessonRow struct {
	ID        int    `db:"id"`
	CourseID  int    `db:"course_id"`
	Title     string `db:"title"`
	Content   string `db:"content"`
	MediaPath string `db:"media_path"`
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson(r)
}

type assignmentRow struct {
	ID          int        `db:"id"`
	CourseID    int        `db:"course_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	DueDate     *time.Time `db:"due_date"`
	MediaPath   string     `db:"media_path"`
}

func (r assignmentRow) toAssignment() course.Assignment {
	return course.Assignment(r)
}

type courseRepository struct {
	db *sqlx.DB
}

var (
	_ course.Repository          = (*courseRepository)(nil)
	_ enroll.CourseDirectory     = (*courseRepository)(nil)
	_ submission.CourseDirectory = (*courseRepository)(nil)
)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	err := repo.db.Get(
		&crs.ID,
		`INSERT INTO courses (title, description, instructor_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		crs.Title, crs.Description, crs.InstructorID, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

// CourseExists satisfies enroll.CourseDirectory.
func (repo *courseRepository) CourseExists(id int) (bool, error) {
	var exists bool
	err := repo.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, id)
	return exists, errors.Wrap(err, "checking course")
}

func (repo *courseRepository) QueryCourses(scope auth.Scope, filter course.QueryFilter) ([]course.Course, error) {
	q := `SELECT * FROM courses WHERE true`
	args := []interface{}{}

	switch {
	case scope.None:
		return []course.Course{}, nil
	case scope.All:
	case scope.InstructorID != "":
		args = append(args, scope.InstructorID)
		q += ` AND instructor_id = $1`
	default:
		return []course.Course{}, nil
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		q += ` AND (title ILIKE $` + n + ` OR description ILIKE $` + n + `)`
	}
	q += ` ORDER BY title`

	var rows []courseRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) QueryEnrolledCourses(studentID string, filter course.QueryFilter) ([]course.Course, error) {
	q := `SELECT c.* FROM courses c
		  JOIN enrollments e ON e.course_id = c.id
		  WHERE e.student_id = $1`
	args := []interface{}{studentID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		q += ` AND (c.title ILIKE $2 OR c.description ILIKE $2)`
	}
	q += ` ORDER BY c.title`

	var rows []courseRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) QueryAvailableCourses(studentID string) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.Select(
		&rows,
		`SELECT c.* FROM courses c
		 WHERE NOT EXISTS (
		     SELECT 1 FROM enrollments e
		     WHERE e.course_id = c.id AND e.student_id = $1
		 )
		 ORDER BY c.title`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying available courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	res, err := repo.db.Exec(
		`UPDATE courses SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		crs.ID, crs.Title, crs.Description, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(id int) error {
	// lessons, assignments, enrollments and submissions go with it (FK cascade)
	_, err := repo.db.Exec(`DELETE FROM courses WHERE id = $1`, id)
	return errors.Wrap(err, "deleting course")
}

func (repo *courseRepository) CreateLesson(lsn course.Lesson) (course.Lesson, error) {
	err := repo.db.Get(
		&lsn.ID,
		`INSERT INTO lessons (course_id, title, content, media_path)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		lsn.CourseID, lsn.Title, lsn.Content, lsn.MediaPath,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return lsn, nil
}

func (repo *courseRepository) GetLesson(id int) (course.Lesson, error) {
	var row lessonRow
	if err := repo.db.Get(&row, `SELECT * FROM lessons WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) QueryLessons(courseID int) ([]course.Lesson, error) {
	var rows []lessonRow
	err := repo.db.Select(&rows, `SELECT * FROM lessons WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.toLesson())
	}
	return lessons, nil
}

func (repo *courseRepository) DeleteLesson(id int) error {
	_, err := repo.db.Exec(`DELETE FROM lessons WHERE id = $1`, id)
	return errors.Wrap(err, "deleting lesson")
}

func (repo *courseRepository) CreateAssignment(asg course.Assignment) (course.Assignment, error) {
	err := repo.db.Get(
		&asg.ID,
		`INSERT INTO assignments (course_id, title, description, due_date, media_path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		asg.CourseID, asg.Title, asg.Description, asg.DueDate, asg.MediaPath,
	)
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *courseRepository) GetAssignment(id int) (course.Assignment, error) {
	var row assignmentRow
	if err := repo.db.Get(&row, `SELECT * FROM assignments WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Assignment{}, course.ErrAssignmentNotFound
		}
		return course.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseRepository) QueryAssignments(courseID int, filter course.QueryFilter) ([]course.Assignment, error) {
	q := `SELECT * FROM assignments WHERE course_id = $1`
	args := []interface{}{courseID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		q += ` AND (title ILIKE $2 OR description ILIKE $2)`
	}
	q += ` ORDER BY due_date NULLS LAST, id`

	var rows []assignmentRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]course.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toAssignment())
	}
	return assignments, nil
}

func (repo *courseRepository) DeleteAssignment(id int) error {
	_, err := repo.db.Exec(`DELETE FROM assignments WHERE id = $1`, id)
	return errors.Wrap(err, "deleting assignment")
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses
}
