package inmemdb

import (
	"sort"
	"strings"

	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
)

type courseRepository struct {
	db *courseTable
	// course deletion cascades into these tables
	enrollments *enrollmentTable
	submissions *submissionTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, enrollments: db.enrollment, submissions: db.submission}
}

func (repo *courseRepository) nextPK() int {
	repo.db.pkCount++
	return repo.db.pkCount
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = repo.nextPK()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(id int) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

// CourseExists satisfies enroll.CourseDirectory.
func (repo *courseRepository) CourseExists(id int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.courses[id]
	return ok, nil
}

func (repo *courseRepository) QueryCourses(scope auth.Scope, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		switch {
		case scope.None:
			continue
		case scope.All:
		case scope.InstructorID != "":
			if crs.InstructorID != scope.InstructorID {
				continue
			}
		default:
			continue
		}
		if !matchesSearch(filter, crs.Title, crs.Description) {
			continue
		}
		courses = append(courses, *crs)
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *courseRepository) QueryEnrolledCourses(studentID string, filter course.QueryFilter) ([]course.Course, error) {
	enrolled := repo.enrolledSet(studentID)

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if _, ok := enrolled[crs.ID]; !ok {
			continue
		}
		if !matchesSearch(filter, crs.Title, crs.Description) {
			continue
		}
		courses = append(courses, *crs)
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *courseRepository) QueryAvailableCourses(studentID string) ([]course.Course, error) {
	enrolled := repo.enrolledSet(studentID)

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if _, ok := enrolled[crs.ID]; ok {
			continue
		}
		courses = append(courses, *crs)
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(id int) error {
	repo.db.mutex.Lock()
	delete(repo.db.courses, id)
	for lid, lsn := range repo.db.lessons {
		if lsn.CourseID == id {
			delete(repo.db.lessons, lid)
		}
	}
	asgIDs := make(map[int]struct{})
	for aid, asg := range repo.db.assignments {
		if asg.CourseID == id {
			asgIDs[aid] = struct{}{}
			delete(repo.db.assignments, aid)
		}
	}
	repo.db.mutex.Unlock()

	repo.enrollments.mutex.Lock()
	for eid, enr := range repo.enrollments.table {
		if enr.CourseID == id {
			delete(repo.enrollments.table, eid)
		}
	}
	repo.enrollments.mutex.Unlock()

	repo.submissions.mutex.Lock()
	for sid, sub := range repo.submissions.table {
		if _, ok := asgIDs[sub.AssignmentID]; ok {
			delete(repo.submissions.table, sid)
		}
	}
	repo.submissions.mutex.Unlock()
	return nil
}

func (repo *courseRepository) CreateLesson(lsn course.Lesson) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lsn.ID = repo.nextPK()
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *courseRepository) GetLesson(id int) (course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) QueryLessons(courseID int) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if lsn.CourseID == courseID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons, nil
}

func (repo *courseRepository) DeleteLesson(id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.lessons, id)
	return nil
}

func (repo *courseRepository) CreateAssignment(asg course.Assignment) (course.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = repo.nextPK()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *courseRepository) GetAssignment(id int) (course.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) QueryAssignments(courseID int, filter course.QueryFilter) ([]course.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]course.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.CourseID != courseID {
			continue
		}
		if !matchesSearch(filter, asg.Title, asg.Description) {
			continue
		}
		assignments = append(assignments, *asg)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (repo *courseRepository) DeleteAssignment(id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.assignments, id)
	return nil
}

func (repo *courseRepository) enrolledSet(studentID string) map[int]struct{} {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	set := make(map[int]struct{})
	for _, enr := range repo.enrollments.table {
		if enr.StudentID == studentID {
			set[enr.CourseID] = struct{}{}
		}
	}
	return set
}

func matchesSearch(filter course.QueryFilter, title, description string) bool {
	if filter.Search == "" {
		return true
	}
	search := strings.ToLower(filter.Search)
	return strings.Contains(strings.ToLower(title), search) ||
		strings.Contains(strings.ToLower(description), search)
}

func sortCourses(courses []course.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].Title < courses[j].Title })
}

var (
	_ enroll.CourseDirectory     = (*courseRepository)(nil)
	_ submission.CourseDirectory = (*courseRepository)(nil)
)
