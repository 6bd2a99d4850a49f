package course

import (
	"errors"
	"io"
	"time"

	"github.com/darasa-lms/darasa/core/auth"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		CreateCourse(c Course) (Course, error)
		GetCourse(id int) (Course, error)
		// QueryCourses applies the caller's scope; ordering is by title.
		QueryCourses(scope auth.Scope, filter QueryFilter) ([]Course, error)
		// QueryEnrolledCourses returns courses the student is enrolled in.
		QueryEnrolledCourses(studentID string, filter QueryFilter) ([]Course, error)
		// QueryAvailableCourses returns the complement of the enrolled set.
		QueryAvailableCourses(studentID string) ([]Course, error)
		UpdateCourse(c Course) (Course, error)
		// DeleteCourse cascades to lessons, assignments, enrollments and submissions.
		DeleteCourse(id int) error

		CreateLesson(l Lesson) (Lesson, error)
		GetLesson(id int) (Lesson, error)
		QueryLessons(courseID int) ([]Lesson, error)
		DeleteLesson(id int) error

		CreateAssignment(a Assignment) (Assignment, error)
		GetAssignment(id int) (Assignment, error)
		QueryAssignments(courseID int, filter QueryFilter) ([]Assignment, error)
		DeleteAssignment(id int) error
	}

	// Storage stores uploaded files and returns an opaque path,
	// namespaced by category.
	Storage interface {
		Store(r io.Reader, filename, category string) (string, error)
	}

	Service interface {
		Create(ctx auth.Context, nc NewCourse) (Course, error)
		Get(ctx auth.Context, id int) (Course, error)
		Query(ctx auth.Context, filter QueryFilter) ([]Course, error)
		Enrolled(ctx auth.Context, filter QueryFilter) ([]Course, error)
		Available(ctx auth.Context) ([]Course, error)
		Update(ctx auth.Context, id int, uc UpdateCourse) (Course, error)
		Delete(ctx auth.Context, id int) error

		Lessons(ctx auth.Context, courseID int) ([]Lesson, error)
		AddLesson(ctx auth.Context, nl NewLesson) (Lesson, error)
		RemoveLesson(ctx auth.Context, lessonID int) error

		Assignments(ctx auth.Context, courseID int, filter QueryFilter) ([]Assignment, error)
		GetAssignment(ctx auth.Context, id int) (Assignment, error)
		AddAssignment(ctx auth.Context, na NewAssignment) (Assignment, error)
		RemoveAssignment(ctx auth.Context, assignmentID int) error
	}

	service struct {
		repo  Repository
		files Storage
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, files Storage) Service {
	return &service{repo: repo, files: files}
}

func (svc *service) Create(ctx auth.Context, nc NewCourse) (Course, error) {
	if !ctx.IsInstructor() {
		return Course{}, auth.ErrForbidden
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(Course{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: ctx.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Get returns the course when it is within the caller's scope. An
// instructor asking for another instructor's course gets ErrNotFound;
// existence is not revealed. Students may view any course's detail page.
func (svc *service) Get(ctx auth.Context, id int) (Course, error) {
	if ctx.IsAnonymous() {
		return Course{}, auth.ErrForbidden
	}
	crs, err := svc.repo.GetCourse(id)
	if err != nil {
		return Course{}, err
	}
	if ctx.IsInstructor() && !ctx.IsAdmin() && crs.InstructorID != ctx.UserID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (svc *service) Query(ctx auth.Context, filter QueryFilter) ([]Course, error) {
	scope := auth.CourseScope(ctx)
	if !scope.Allowed() {
		return nil, auth.ErrForbidden
	}
	filter.Clean()
	if scope.StudentID != "" {
		return svc.repo.QueryEnrolledCourses(scope.StudentID, filter)
	}
	return svc.repo.QueryCourses(scope, filter)
}

func (svc *service) Enrolled(ctx auth.Context, filter QueryFilter) ([]Course, error) {
	if !ctx.IsStudent() {
		return nil, auth.ErrForbidden
	}
	filter.Clean()
	return svc.repo.QueryEnrolledCourses(ctx.UserID, filter)
}

func (svc *service) Available(ctx auth.Context) ([]Course, error) {
	if !ctx.IsStudent() {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryAvailableCourses(ctx.UserID)
}

func (svc *service) Update(ctx auth.Context, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.owned(ctx, id)
	if err != nil {
		return Course{}, err
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(crs)
}

func (svc *service) Delete(ctx auth.Context, id int) error {
	if _, err := svc.owned(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(id)
}

func (svc *service) Lessons(ctx auth.Context, courseID int) ([]Lesson, error) {
	if !auth.LessonScope(ctx).Allowed() {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryLessons(courseID)
}

func (svc *service) AddLesson(ctx auth.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.owned(ctx, nl.CourseID); err != nil {
		return Lesson{}, err
	}

	lsn := Lesson{
		CourseID: nl.CourseID,
		Title:    nl.Title,
		Content:  nl.Content,
	}
	if nl.Media != nil {
		path, err := svc.files.Store(nl.Media, nl.MediaName, "lessons")
		if err != nil {
			return Lesson{}, err
		}
		lsn.MediaPath = path
	}
	return svc.repo.CreateLesson(lsn)
}

func (svc *service) RemoveLesson(ctx auth.Context, lessonID int) error {
	lsn, err := svc.repo.GetLesson(lessonID)
	if err != nil {
		return err
	}
	if _, err = svc.owned(ctx, lsn.CourseID); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(lessonID)
}

func (svc *service) Assignments(ctx auth.Context, courseID int, filter QueryFilter) ([]Assignment, error) {
	if !auth.AssignmentScope(ctx).Allowed() {
		return nil, auth.ErrForbidden
	}
	filter.Clean()
	return svc.repo.QueryAssignments(courseID, filter)
}

func (svc *service) GetAssignment(ctx auth.Context, id int) (Assignment, error) {
	if !auth.AssignmentScope(ctx).Allowed() {
		return Assignment{}, auth.ErrForbidden
	}
	return svc.repo.GetAssignment(id)
}

func (svc *service) AddAssignment(ctx auth.Context, na NewAssignment) (Assignment, error) {
	if _, err := svc.owned(ctx, na.CourseID); err != nil {
		return Assignment{}, err
	}

	asg := Assignment{
		CourseID:    na.CourseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
	}
	if na.Media != nil {
		path, err := svc.files.Store(na.Media, na.MediaName, "assignments")
		if err != nil {
			return Assignment{}, err
		}
		asg.MediaPath = path
	}
	return svc.repo.CreateAssignment(asg)
}

func (svc *service) RemoveAssignment(ctx auth.Context, assignmentID int) error {
	asg, err := svc.repo.GetAssignment(assignmentID)
	if err != nil {
		return err
	}
	if _, err = svc.owned(ctx, asg.CourseID); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(assignmentID)
}

// owned fetches the course and checks the caller may mutate it:
// the owning instructor or an admin. Scope misses read as ErrNotFound.
func (svc *service) owned(ctx auth.Context, courseID int) (Course, error) {
	if ctx.IsAnonymous() || !(ctx.IsInstructor() || ctx.IsAdmin()) {
		return Course{}, auth.ErrForbidden
	}
	crs, err := svc.repo.GetCourse(courseID)
	if err != nil {
		return Course{}, err
	}
	if !ctx.IsAdmin() && crs.InstructorID != ctx.UserID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}
