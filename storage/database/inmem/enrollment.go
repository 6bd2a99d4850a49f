package inmemdb

import (
	"sort"

	"github.com/darasa-lms/darasa/core/enroll"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enroll.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enroll.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) GetEnrollment(courseID int, studentID string) (enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.get(courseID, studentID)
}

func (repo *enrollmentRepository) get(courseID int, studentID string) (enroll.Enrollment, error) {
	for _, enr := range repo.db.table {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			return *enr, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

// CreateEnrollment is insert-if-absent: the existing record wins over a
// duplicate pair, mirroring the unique constraint in the SQL schema.
func (repo *enrollmentRepository) CreateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, err := repo.get(enr.CourseID, enr.StudentID); err == nil {
		return existing, nil
	}

	repo.db.pkCount++
	enr.ID = repo.db.pkCount
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(courseID int, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, enr := range repo.db.table {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByCourse(courseID int) ([]enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]enroll.Enrollment, 0)
	for _, enr := range repo.db.table {
		if enr.CourseID == courseID {
			enrollments = append(enrollments, *enr)
		}
	}
	sortEnrollments(enrollments)
	return enrollments, nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(studentID string) ([]enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]enroll.Enrollment, 0)
	for _, enr := range repo.db.table {
		if enr.StudentID == studentID {
			enrollments = append(enrollments, *enr)
		}
	}
	sortEnrollments(enrollments)
	return enrollments, nil
}

func sortEnrollments(enrollments []enroll.Enrollment) {
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
}
