package inmemdb

import (
	"sort"
	"time"

	"github.com/darasa-lms/darasa/core/submission"
)

type submissionRepository struct {
	db      *submissionTable
	courses *courseTable
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db.submission, courses: db.course}
}

func (repo *submissionRepository) CreateSubmission(sub submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pkCount++
	sub.ID = repo.db.pkCount
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(id int) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) QueryByAssignment(assignmentID int) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	sortSubmissions(subs)
	return subs, nil
}

func (repo *submissionRepository) QueryByAssignmentAndStudent(assignmentID int, studentID string) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			subs = append(subs, *sub)
		}
	}
	sortSubmissions(subs)
	return subs, nil
}

func (repo *submissionRepository) QueryByCourseAndStudent(courseID int, studentID string) ([]submission.Submission, error) {
	courseAsgs := make(map[int]struct{})
	repo.courses.mutex.RLock()
	for id, asg := range repo.courses.assignments {
		if asg.CourseID == courseID {
			courseAsgs[id] = struct{}{}
		}
	}
	repo.courses.mutex.RUnlock()

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if _, ok := courseAsgs[sub.AssignmentID]; ok && sub.StudentID == studentID {
			subs = append(subs, *sub)
		}
	}
	sortSubmissions(subs)
	return subs, nil
}

func (repo *submissionRepository) SetGrade(id int, grade float64, feedback string, gradedAt time.Time) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	sub.Grade = &grade
	sub.Feedback = feedback
	sub.GradedAt = &gradedAt
	return *sub, nil
}

// newest first
func sortSubmissions(subs []submission.Submission) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
}
