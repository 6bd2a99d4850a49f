package enroll

import (
	"errors"
	"time"

	"github.com/darasa-lms/darasa/core/auth"
)

var (
	// errors
	ErrNotFound       = errors.New("enrollment not found")
	ErrCourseNotFound = errors.New("course not found")
)

// Enrollment ties a student to a course. At most one record may exist per
// (course, student) pair for all time; the storage layer backs this with a
// uniqueness constraint so concurrent enrolls converge to a single row.
type Enrollment struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type (
	Repository interface {
		GetEnrollment(courseID int, studentID string) (Enrollment, error)
		// CreateEnrollment must treat a duplicate pair as success and return
		// the existing record (insert-if-absent).
		CreateEnrollment(e Enrollment) (Enrollment, error)
		// DeleteEnrollment is a no-op when no matching record exists.
		DeleteEnrollment(courseID int, studentID string) error
		QueryEnrollmentsByCourse(courseID int) ([]Enrollment, error)
		QueryEnrollmentsByStudent(studentID string) ([]Enrollment, error)
	}

	// CourseDirectory is the narrow course lookup the ledger needs.
	CourseDirectory interface {
		CourseExists(id int) (bool, error)
	}

	Service interface {
		// Enroll is idempotent: enrolling twice yields the same single record.
		Enroll(ctx auth.Context, courseID int) (Enrollment, error)
		// Unenroll is idempotent: a missing pair is not an error.
		Unenroll(ctx auth.Context, courseID int) error
		ByCourse(ctx auth.Context, courseID int) ([]Enrollment, error)
		ByStudent(ctx auth.Context) ([]Enrollment, error)
	}

	service struct {
		repo    Repository
		courses CourseDirectory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses CourseDirectory) Service {
	return &service{repo: repo, courses: courses}
}

func (svc *service) Enroll(ctx auth.Context, courseID int) (Enrollment, error) {
	if !ctx.IsStudent() {
		return Enrollment{}, auth.ErrForbidden
	}

	exists, err := svc.courses.CourseExists(courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !exists {
		return Enrollment{}, ErrCourseNotFound
	}

	if enr, err := svc.repo.GetEnrollment(courseID, ctx.UserID); err == nil {
		return enr, nil
	} else if err != ErrNotFound {
		return Enrollment{}, err
	}

	return svc.repo.CreateEnrollment(Enrollment{
		CourseID:  courseID,
		StudentID: ctx.UserID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Unenroll(ctx auth.Context, courseID int) error {
	if !ctx.IsStudent() {
		return auth.ErrForbidden
	}
	return svc.repo.DeleteEnrollment(courseID, ctx.UserID)
}

func (svc *service) ByCourse(ctx auth.Context, courseID int) ([]Enrollment, error) {
	if !(ctx.IsAdmin() || ctx.IsInstructor()) {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryEnrollmentsByCourse(courseID)
}

func (svc *service) ByStudent(ctx auth.Context) ([]Enrollment, error) {
	if !ctx.IsStudent() {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryEnrollmentsByStudent(ctx.UserID)
}
