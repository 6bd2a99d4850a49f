// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sync"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
	"github.com/darasa-lms/darasa/core/user"
)

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type courseTable struct {
	mutex       sync.RWMutex
	courses     map[int]*course.Course
	lessons     map[int]*course.Lesson
	assignments map[int]*course.Assignment
	pkCount     int
}

type enrollmentTable struct {
	mutex   sync.RWMutex
	table   map[int]*enroll.Enrollment
	pkCount int
}

type submissionTable struct {
	mutex   sync.RWMutex
	table   map[int]*submission.Submission
	pkCount int
}

type DB struct {
	user       *userTable
	course     *courseTable
	enrollment *enrollmentTable
	submission *submissionTable
}

func NewDB() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:     make(map[int]*course.Course),
			lessons:     make(map[int]*course.Lesson),
			assignments: make(map[int]*course.Assignment),
		},
		enrollment: &enrollmentTable{table: make(map[int]*enroll.Enrollment)},
		submission: &submissionTable{table: make(map[int]*submission.Submission)},
	}
}
