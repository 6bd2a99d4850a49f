package submission_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/submission"
	inmemdb "github.com/darasa-lms/darasa/storage/database/inmem"
)

var (
	admin      = auth.Context{UserID: "aid", Roles: []auth.Role{auth.RoleAdmin}}
	instructor = auth.Context{UserID: "iid", Roles: []auth.Role{auth.RoleInstructor}}
	rival      = auth.Context{UserID: "rid", Roles: []auth.Role{auth.RoleInstructor}}
	student    = auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}
)

type storeStub struct{}

func (storeStub) Store(r io.Reader, filename, category string) (string, error) {
	return "/" + category + "/" + filename, nil
}

type fixture struct {
	svc submission.Service
	asg course.Assignment
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.NewDB()
	crsRepo := inmemdb.NewCourseRepository(db)
	svc := submission.NewService(inmemdb.NewSubmissionRepository(db), crsRepo, storeStub{})

	now := time.Now().UTC()
	crs, err := crsRepo.CreateCourse(course.Course{
		Title:        "Intro to Go",
		InstructorID: instructor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	asg, err := crsRepo.CreateAssignment(course.Assignment{CourseID: crs.ID, Title: "Exercise 1"})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	return fixture{svc: svc, asg: asg}
}

func submit(t *testing.T, f fixture, content string) submission.Submission {
	t.Helper()
	sub, err := f.svc.Submit(student, submission.NewSubmission{AssignmentID: f.asg.ID, Content: content})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return sub
}

func TestService_Submit(t *testing.T) {
	f := setup(t)

	sub := submit(t, f, "my answer")
	if sub.StudentID != student.UserID {
		t.Errorf("Submit() StudentID = %s, want %s", sub.StudentID, student.UserID)
	}
	if sub.IsGraded() {
		t.Error("Submit() new submission starts graded")
	}

	// every attempt is a new record
	submit(t, f, "second attempt")
	mine, err := f.svc.Mine(student, f.asg.ID)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("Mine() returned %d submissions, want 2", len(mine))
	}

	if _, err = f.svc.Submit(instructor, submission.NewSubmission{AssignmentID: f.asg.ID, Content: "x"}); err != auth.ErrForbidden {
		t.Errorf("Submit() as instructor error = %v, want %v", err, auth.ErrForbidden)
	}
	if _, err = f.svc.Submit(student, submission.NewSubmission{AssignmentID: 999, Content: "x"}); err != course.ErrAssignmentNotFound {
		t.Errorf("Submit() missing assignment error = %v, want %v", err, course.ErrAssignmentNotFound)
	}
}

func TestService_Submit_withFile(t *testing.T) {
	f := setup(t)

	sub, err := f.svc.Submit(student, submission.NewSubmission{
		AssignmentID: f.asg.ID,
		FileName:     "essay.pdf",
		File:         strings.NewReader("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.FilePath == "" {
		t.Error("Submit() with file did not store a file path")
	}
}

func TestService_SetGrade(t *testing.T) {
	f := setup(t)
	sub := submit(t, f, "my answer")

	graded, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: 3.5, Feedback: "good"})
	if err != nil {
		t.Fatalf("SetGrade() error = %v", err)
	}
	if graded.Grade == nil || *graded.Grade != 3.5 {
		t.Errorf("SetGrade() Grade = %v, want 3.5", graded.Grade)
	}
	if graded.GradedAt == nil {
		t.Error("SetGrade() did not stamp GradedAt")
	}
	if graded.Feedback != "good" {
		t.Errorf("SetGrade() Feedback = %q, want %q", graded.Feedback, "good")
	}

	// re-grading overwrites; last writer wins
	regraded, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: 2})
	if err != nil {
		t.Fatalf("SetGrade() regrade error = %v", err)
	}
	if *regraded.Grade != 2 {
		t.Errorf("SetGrade() regrade Grade = %v, want 2", *regraded.Grade)
	}
}

func TestService_SetGrade_bounds(t *testing.T) {
	f := setup(t)
	sub := submit(t, f, "my answer")

	if _, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: 3}); err != nil {
		t.Fatalf("SetGrade() error = %v", err)
	}

	for _, grade := range []float64{0, 0.5, 4.5, 5, -1} {
		_, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: grade})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("SetGrade(%v) error = %v, want a validation error", grade, err)
		}
		// the error must carry a printable message
		if err == nil || err.Error() == "" {
			t.Errorf("SetGrade(%v) error message is empty", grade)
		}
	}

	// a rejected grade leaves the prior one in place
	mine, err := f.svc.Mine(student, f.asg.ID)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if mine[0].Grade == nil || *mine[0].Grade != 3 {
		t.Errorf("Grade after rejected updates = %v, want 3", mine[0].Grade)
	}

	// bounds are inclusive
	for _, grade := range []float64{1, 4} {
		if _, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: grade}); err != nil {
			t.Errorf("SetGrade(%v) error = %v", grade, err)
		}
	}
}

// Grading authority follows the Submission -> Assignment -> Course chain;
// an instructor who does not own the course is rejected.
func TestService_SetGrade_ownershipChain(t *testing.T) {
	f := setup(t)
	sub := submit(t, f, "my answer")

	if _, err := f.svc.SetGrade(rival, sub.ID, submission.GradeSubmission{Grade: 4}); err != auth.ErrForbidden {
		t.Errorf("SetGrade() cross-instructor error = %v, want %v", err, auth.ErrForbidden)
	}
	if _, err := f.svc.SetGrade(student, sub.ID, submission.GradeSubmission{Grade: 4}); err != auth.ErrForbidden {
		t.Errorf("SetGrade() as student error = %v, want %v", err, auth.ErrForbidden)
	}

	// admins may grade anything
	if _, err := f.svc.SetGrade(admin, sub.ID, submission.GradeSubmission{Grade: 4}); err != nil {
		t.Errorf("SetGrade() as admin error = %v", err)
	}

	if _, err := f.svc.SetGrade(instructor, 999, submission.GradeSubmission{Grade: 4}); err != submission.ErrNotFound {
		t.Errorf("SetGrade() missing submission error = %v, want %v", err, submission.ErrNotFound)
	}
}

func TestService_ByAssignment(t *testing.T) {
	f := setup(t)
	submit(t, f, "my answer")

	subs, err := f.svc.ByAssignment(instructor, f.asg.ID)
	if err != nil {
		t.Fatalf("ByAssignment() error = %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("ByAssignment() returned %d submissions, want 1", len(subs))
	}

	if _, err = f.svc.ByAssignment(rival, f.asg.ID); err != auth.ErrForbidden {
		t.Errorf("ByAssignment() cross-instructor error = %v, want %v", err, auth.ErrForbidden)
	}
	if _, err = f.svc.ByAssignment(student, f.asg.ID); err != auth.ErrForbidden {
		t.Errorf("ByAssignment() as student error = %v, want %v", err, auth.ErrForbidden)
	}
}

func TestService_Grades(t *testing.T) {
	f := setup(t)
	sub := submit(t, f, "my answer")

	if _, err := f.svc.SetGrade(instructor, sub.ID, submission.GradeSubmission{Grade: 4, Feedback: "perfect"}); err != nil {
		t.Fatalf("SetGrade() error = %v", err)
	}

	grades, err := f.svc.Grades(student, f.asg.CourseID)
	if err != nil {
		t.Fatalf("Grades() error = %v", err)
	}
	if len(grades) != 1 || grades[0].Grade == nil || *grades[0].Grade != 4 {
		t.Errorf("Grades() = %+v", grades)
	}

	// other students see nothing
	other := auth.Context{UserID: "other", Roles: []auth.Role{auth.RoleStudent}}
	grades, err = f.svc.Grades(other, f.asg.CourseID)
	if err != nil {
		t.Fatalf("Grades() error = %v", err)
	}
	if len(grades) != 0 {
		t.Errorf("Grades() for another student returned %d submissions, want 0", len(grades))
	}

	if _, err = f.svc.Grades(instructor, f.asg.CourseID); err != auth.ErrForbidden {
		t.Errorf("Grades() as instructor error = %v, want %v", err, auth.ErrForbidden)
	}
}

func TestNewSubmission_Validate_requiresContentOrFile(t *testing.T) {
	ns := submission.NewSubmission{AssignmentID: 1, Content: "  "}
	err := ns.Validate()
	if _, ok := err.(*core.ValidationError); !ok {
		t.Fatalf("Validate() error = %v, want a validation error", err)
	}
	if err.Error() == "" {
		t.Error("Validate() error message is empty")
	}

	ns = submission.NewSubmission{AssignmentID: 1, FileName: "essay.pdf", File: strings.NewReader("pdf")}
	if err := ns.Validate(); err != nil {
		t.Errorf("Validate() with file error = %v", err)
	}
}
