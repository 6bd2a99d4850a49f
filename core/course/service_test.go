package course_test

import (
	"io"
	"strings"
	"testing"
	"time"

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

func setup(t *testing.T) course.Service {
	t.Helper()
	db := inmemdb.NewDB()
	return course.NewService(inmemdb.NewCourseRepository(db), storeStub{})
}

func mustCreate(t *testing.T, svc course.Service, ctx auth.Context, title string) course.Course {
	t.Helper()
	crs, err := svc.Create(ctx, course.NewCourse{Title: title})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return crs
}

func TestService_Create(t *testing.T) {
	svc := setup(t)

	crs := mustCreate(t, svc, instructor, "Intro to Go")
	if crs.InstructorID != instructor.UserID {
		t.Errorf("Create() InstructorID = %s, want %s", crs.InstructorID, instructor.UserID)
	}

	if _, err := svc.Create(student, course.NewCourse{Title: "Nope"}); err != auth.ErrForbidden {
		t.Errorf("Create() as student error = %v, want %v", err, auth.ErrForbidden)
	}
	if _, err := svc.Create(auth.Context{}, course.NewCourse{Title: "Nope"}); err != auth.ErrForbidden {
		t.Errorf("Create() as anonymous error = %v, want %v", err, auth.ErrForbidden)
	}
}

// An instructor probing another instructor's course gets not-found, never
// a forbidden that would reveal existence.
func TestService_Get_scopeMissReadsAsNotFound(t *testing.T) {
	svc := setup(t)
	crs := mustCreate(t, svc, instructor, "Intro to Go")

	if _, err := svc.Get(rival, crs.ID); err != course.ErrNotFound {
		t.Errorf("Get() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}
	if _, err := svc.Update(rival, crs.ID, course.UpdateCourse{Title: "Hijack"}); err != course.ErrNotFound {
		t.Errorf("Update() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}
	if err := svc.Delete(rival, crs.ID); err != course.ErrNotFound {
		t.Errorf("Delete() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}

	// admins and students may read it
	if _, err := svc.Get(admin, crs.ID); err != nil {
		t.Errorf("Get() as admin error = %v", err)
	}
	if _, err := svc.Get(student, crs.ID); err != nil {
		t.Errorf("Get() as student error = %v", err)
	}
}

func TestService_Query_scoped(t *testing.T) {
	svc := setup(t)
	mustCreate(t, svc, instructor, "Intro to Go")
	mustCreate(t, svc, instructor, "Advanced Go")
	mustCreate(t, svc, rival, "Intro to Rust")

	mine, err := svc.Query(instructor, course.QueryFilter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("Query() as instructor returned %d courses, want 2", len(mine))
	}

	all, err := svc.Query(admin, course.QueryFilter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Query() as admin returned %d courses, want 3", len(all))
	}

	found, err := svc.Query(admin, course.QueryFilter{Search: "intro"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(found) != 2 {
		t.Errorf("Query() with search returned %d courses, want 2", len(found))
	}
	for _, crs := range found {
		if !strings.Contains(strings.ToLower(crs.Title), "intro") {
			t.Errorf("Query() with search returned %q", crs.Title)
		}
	}

	if _, err = svc.Query(auth.Context{}, course.QueryFilter{}); err != auth.ErrForbidden {
		t.Errorf("Query() as anonymous error = %v, want %v", err, auth.ErrForbidden)
	}
}

func TestService_Update(t *testing.T) {
	svc := setup(t)
	crs := mustCreate(t, svc, instructor, "Intro to Go")

	got, err := svc.Update(instructor, crs.ID, course.UpdateCourse{Title: "Go 101", Description: "Basics"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Go 101" || got.Description != "Basics" {
		t.Errorf("Update() = %+v", got)
	}

	// admin may update anyone's course
	if _, err = svc.Update(admin, crs.ID, course.UpdateCourse{Title: "Go 102"}); err != nil {
		t.Errorf("Update() as admin error = %v", err)
	}

	if _, err = svc.Update(student, crs.ID, course.UpdateCourse{Title: "Nope"}); err != auth.ErrForbidden {
		t.Errorf("Update() as student error = %v, want %v", err, auth.ErrForbidden)
	}
}

func TestService_Lessons(t *testing.T) {
	svc := setup(t)
	crs := mustCreate(t, svc, instructor, "Intro to Go")

	lsn, err := svc.AddLesson(instructor, course.NewLesson{CourseID: crs.ID, Title: "Hello", Content: "fmt.Println"})
	if err != nil {
		t.Fatalf("AddLesson() error = %v", err)
	}

	if _, err = svc.AddLesson(rival, course.NewLesson{CourseID: crs.ID, Title: "Nope"}); err != course.ErrNotFound {
		t.Errorf("AddLesson() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}
	if _, err = svc.AddLesson(student, course.NewLesson{CourseID: crs.ID, Title: "Nope"}); err != auth.ErrForbidden {
		t.Errorf("AddLesson() as student error = %v, want %v", err, auth.ErrForbidden)
	}

	// students may read lessons of any course
	lessons, err := svc.Lessons(student, crs.ID)
	if err != nil {
		t.Fatalf("Lessons() as student error = %v", err)
	}
	if len(lessons) != 1 || lessons[0].ID != lsn.ID {
		t.Errorf("Lessons() = %+v", lessons)
	}

	if err = svc.RemoveLesson(rival, lsn.ID); err != course.ErrNotFound {
		t.Errorf("RemoveLesson() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}
	if err = svc.RemoveLesson(instructor, lsn.ID); err != nil {
		t.Fatalf("RemoveLesson() error = %v", err)
	}
}

func TestService_Assignments(t *testing.T) {
	svc := setup(t)
	crs := mustCreate(t, svc, instructor, "Intro to Go")

	asg, err := svc.AddAssignment(instructor, course.NewAssignment{CourseID: crs.ID, Title: "Exercise 1"})
	if err != nil {
		t.Fatalf("AddAssignment() error = %v", err)
	}

	if _, err = svc.AddAssignment(rival, course.NewAssignment{CourseID: crs.ID, Title: "Nope"}); err != course.ErrNotFound {
		t.Errorf("AddAssignment() cross-instructor error = %v, want %v", err, course.ErrNotFound)
	}

	assignments, err := svc.Assignments(student, crs.ID, course.QueryFilter{})
	if err != nil {
		t.Fatalf("Assignments() as student error = %v", err)
	}
	if len(assignments) != 1 || assignments[0].ID != asg.ID {
		t.Errorf("Assignments() = %+v", assignments)
	}

	if err = svc.RemoveAssignment(instructor, asg.ID); err != nil {
		t.Fatalf("RemoveAssignment() error = %v", err)
	}
	if _, err = svc.GetAssignment(instructor, asg.ID); err != course.ErrAssignmentNotFound {
		t.Errorf("GetAssignment() after removal error = %v, want %v", err, course.ErrAssignmentNotFound)
	}
}

func TestService_Delete_cascades(t *testing.T) {
	db := inmemdb.NewDB()
	svc := course.NewService(inmemdb.NewCourseRepository(db), storeStub{})
	subRepo := inmemdb.NewSubmissionRepository(db)

	crs := mustCreate(t, svc, instructor, "Intro to Go")
	lsn, err := svc.AddLesson(instructor, course.NewLesson{CourseID: crs.ID, Title: "Hello"})
	if err != nil {
		t.Fatalf("AddLesson() error = %v", err)
	}
	asg, err := svc.AddAssignment(instructor, course.NewAssignment{CourseID: crs.ID, Title: "Exercise 1"})
	if err != nil {
		t.Fatalf("AddAssignment() error = %v", err)
	}
	sub, err := subRepo.CreateSubmission(submission.Submission{
		AssignmentID: asg.ID,
		StudentID:    student.UserID,
		Content:      "my answer",
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}

	if err = svc.Delete(instructor, crs.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err = svc.Get(instructor, crs.ID); err != course.ErrNotFound {
		t.Errorf("Get() after delete error = %v, want %v", err, course.ErrNotFound)
	}

	lessons, err := svc.Lessons(admin, crs.ID)
	if err != nil {
		t.Fatalf("Lessons() error = %v", err)
	}
	for _, l := range lessons {
		if l.ID == lsn.ID {
			t.Error("Delete() did not cascade to lessons")
		}
	}

	subs, err := subRepo.QueryByAssignment(asg.ID)
	if err != nil {
		t.Fatalf("QueryByAssignment() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("Delete() did not cascade to submissions: %+v", subs)
	}
	if _, err = subRepo.GetSubmission(sub.ID); err != submission.ErrNotFound {
		t.Errorf("GetSubmission() after delete error = %v, want %v", err, submission.ErrNotFound)
	}
}
