package submission

import (
	"errors"
	"io"
	"time"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
)

var (
	// errors
	ErrNotFound        = errors.New("submission not found")
	errInvalidGrade    = errors.New("invalid grade")
	errEmptySubmission = errors.New("empty submission")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSubmission(s Submission) (Submission, error)
		GetSubmission(id int) (Submission, error)
		// QueryByAssignment returns submissions newest first.
		QueryByAssignment(assignmentID int) ([]Submission, error)
		QueryByAssignmentAndStudent(assignmentID int, studentID string) ([]Submission, error)
		// QueryByCourseAndStudent returns the student's submissions across
		// all of the course's assignments.
		QueryByCourseAndStudent(courseID int, studentID string) ([]Submission, error)
		// SetGrade overwrites any prior grade; other fields are untouched.
		SetGrade(id int, grade float64, feedback string, gradedAt time.Time) (Submission, error)
	}

	// CourseDirectory resolves the Submission → Assignment → Course
	// ownership chain.
	CourseDirectory interface {
		GetAssignment(id int) (course.Assignment, error)
		GetCourse(id int) (course.Course, error)
	}

	// Storage stores uploaded files and returns an opaque path.
	Storage interface {
		Store(r io.Reader, filename, category string) (string, error)
	}

	Service interface {
		Submit(ctx auth.Context, ns NewSubmission) (Submission, error)
		// ByAssignment is instructor-scoped: the caller must own the
		// assignment's course.
		ByAssignment(ctx auth.Context, assignmentID int) ([]Submission, error)
		// Mine returns the caller's own attempts for an assignment.
		Mine(ctx auth.Context, assignmentID int) ([]Submission, error)
		// Grades returns the caller's submissions for a course.
		Grades(ctx auth.Context, courseID int) ([]Submission, error)
		// SetGrade records a mark in [1,4] and stamps GradedAt. Re-grading
		// overwrites the prior value; last writer wins.
		SetGrade(ctx auth.Context, submissionID int, gs GradeSubmission) (Submission, error)
	}

	service struct {
		repo    Repository
		courses CourseDirectory
		files   Storage
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses CourseDirectory, files Storage) Service {
	return &service{repo: repo, courses: courses, files: files}
}

func (svc *service) Submit(ctx auth.Context, ns NewSubmission) (Submission, error) {
	if !ctx.IsStudent() {
		return Submission{}, auth.ErrForbidden
	}
	if _, err := svc.courses.GetAssignment(ns.AssignmentID); err != nil {
		return Submission{}, err
	}

	sub := Submission{
		AssignmentID: ns.AssignmentID,
		StudentID:    ctx.UserID,
		Content:      ns.Content,
		SubmittedAt:  nowFunc().UTC(),
	}
	if ns.File != nil {
		path, err := svc.files.Store(ns.File, ns.FileName, "submissions")
		if err != nil {
			return Submission{}, err
		}
		sub.FilePath = path
	}
	return svc.repo.CreateSubmission(sub)
}

func (svc *service) ByAssignment(ctx auth.Context, assignmentID int) ([]Submission, error) {
	asg, err := svc.courses.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if err := svc.checkCourseOwnership(ctx, asg.CourseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryByAssignment(assignmentID)
}

func (svc *service) Mine(ctx auth.Context, assignmentID int) ([]Submission, error) {
	scope := auth.SubmissionScope(ctx)
	if !scope.Allowed() || scope.StudentID == "" {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryByAssignmentAndStudent(assignmentID, scope.StudentID)
}

func (svc *service) Grades(ctx auth.Context, courseID int) ([]Submission, error) {
	scope := auth.SubmissionScope(ctx)
	if !scope.Allowed() || scope.StudentID == "" {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryByCourseAndStudent(courseID, scope.StudentID)
}

// SetGrade authorizes by re-fetching the full ownership chain
// Submission → Assignment → Course; nothing is trusted from the caller.
func (svc *service) SetGrade(ctx auth.Context, submissionID int, gs GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmission(submissionID)
	if err != nil {
		return Submission{}, err
	}
	asg, err := svc.courses.GetAssignment(sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if err := svc.checkCourseOwnership(ctx, asg.CourseID); err != nil {
		return Submission{}, err
	}

	if gs.Grade < MinGrade || gs.Grade > MaxGrade {
		return Submission{}, core.NewValidationError(errInvalidGrade, core.FieldError{
			Field: "grade",
			Error: "grade should be between 1-4, 4 being the best and 1 being the worst",
		})
	}
	return svc.repo.SetGrade(submissionID, gs.Grade, gs.Feedback, nowFunc().UTC())
}

func (svc *service) checkCourseOwnership(ctx auth.Context, courseID int) error {
	scope := auth.SubmissionScope(ctx)
	switch {
	case !scope.Allowed():
		return auth.ErrForbidden
	case scope.All:
		return nil
	case scope.InstructorID == "":
		return auth.ErrForbidden
	}

	crs, err := svc.courses.GetCourse(courseID)
	if err != nil {
		return err
	}
	if crs.InstructorID != scope.InstructorID {
		return auth.ErrForbidden
	}
	return nil
}
