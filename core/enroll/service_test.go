package enroll_test

import (
	"sync"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	inmemdb "github.com/darasa-lms/darasa/storage/database/inmem"
)

func setup(t *testing.T) (enroll.Service, course.Course) {
	t.Helper()
	db := inmemdb.NewDB()
	crsRepo := inmemdb.NewCourseRepository(db)
	svc := enroll.NewService(inmemdb.NewEnrollmentRepository(db), crsRepo)

	now := time.Now().UTC()
	crs, err := crsRepo.CreateCourse(course.Course{
		Title:        "Intro to Go",
		InstructorID: "iid",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	return svc, crs
}

func TestService_Enroll_idempotent(t *testing.T) {
	svc, crs := setup(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	first, err := svc.Enroll(student, crs.ID)
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	// enrolling twice yields the same single record
	second, err := svc.Enroll(student, crs.ID)
	if err != nil {
		t.Fatalf("Enroll() second call error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Enroll() second call ID = %d, want %d", second.ID, first.ID)
	}

	mine, err := svc.ByStudent(student)
	if err != nil {
		t.Fatalf("ByStudent() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("ByStudent() returned %d enrollments, want 1", len(mine))
	}
}

func TestService_Enroll_concurrent(t *testing.T) {
	svc, crs := setup(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Enroll(student, crs.ID); err != nil {
				t.Errorf("Enroll() error = %v", err)
			}
		}()
	}
	wg.Wait()

	mine, err := svc.ByStudent(student)
	if err != nil {
		t.Fatalf("ByStudent() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("concurrent Enroll() converged to %d records, want 1", len(mine))
	}
}

func TestService_Enroll_missingCourse(t *testing.T) {
	svc, _ := setup(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	if _, err := svc.Enroll(student, 999); err != enroll.ErrCourseNotFound {
		t.Errorf("Enroll() error = %v, want %v", err, enroll.ErrCourseNotFound)
	}
}

func TestService_Enroll_studentsOnly(t *testing.T) {
	svc, crs := setup(t)

	tests := []struct {
		name string
		ctx  auth.Context
	}{
		{name: "anonymous", ctx: auth.Context{}},
		{name: "instructor", ctx: auth.Context{UserID: "iid", Roles: []auth.Role{auth.RoleInstructor}}},
		{name: "admin", ctx: auth.Context{UserID: "aid", Roles: []auth.Role{auth.RoleAdmin}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Enroll(tt.ctx, crs.ID); err != auth.ErrForbidden {
				t.Errorf("Enroll() error = %v, want %v", err, auth.ErrForbidden)
			}
			if err := svc.Unenroll(tt.ctx, crs.ID); err != auth.ErrForbidden {
				t.Errorf("Unenroll() error = %v, want %v", err, auth.ErrForbidden)
			}
		})
	}
}

func TestService_Unenroll_idempotent(t *testing.T) {
	svc, crs := setup(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	// unenrolling without ever enrolling is a no-op
	if err := svc.Unenroll(student, crs.ID); err != nil {
		t.Errorf("Unenroll() without enrollment error = %v", err)
	}

	if _, err := svc.Enroll(student, crs.ID); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if err := svc.Unenroll(student, crs.ID); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if err := svc.Unenroll(student, crs.ID); err != nil {
		t.Errorf("Unenroll() second call error = %v", err)
	}

	mine, err := svc.ByStudent(student)
	if err != nil {
		t.Fatalf("ByStudent() error = %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("ByStudent() returned %d enrollments, want 0", len(mine))
	}
}

func TestService_ReenrollAfterUnenroll(t *testing.T) {
	svc, crs := setup(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	if _, err := svc.Enroll(student, crs.ID); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if err := svc.Unenroll(student, crs.ID); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if _, err := svc.Enroll(student, crs.ID); err != nil {
		t.Fatalf("re-Enroll() error = %v", err)
	}

	mine, err := svc.ByStudent(student)
	if err != nil {
		t.Fatalf("ByStudent() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("ByStudent() returned %d enrollments, want 1", len(mine))
	}
}

func TestService_ByCourse_roster(t *testing.T) {
	svc, crs := setup(t)
	instructor := auth.Context{UserID: "iid", Roles: []auth.Role{auth.RoleInstructor}}
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}

	if _, err := svc.Enroll(student, crs.ID); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	roster, err := svc.ByCourse(instructor, crs.ID)
	if err != nil {
		t.Fatalf("ByCourse() error = %v", err)
	}
	if len(roster) != 1 || roster[0].StudentID != "sid" {
		t.Errorf("ByCourse() = %+v, want single enrollment for sid", roster)
	}

	if _, err = svc.ByCourse(student, crs.ID); err != auth.ErrForbidden {
		t.Errorf("ByCourse() as student error = %v, want %v", err, auth.ErrForbidden)
	}
}
